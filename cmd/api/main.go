// Package main implements the HTTP search API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihttp "github.com/dsjohal14/docsearch/internal/http"
	"github.com/dsjohal14/docsearch/internal/libs/config"
	"github.com/dsjohal14/docsearch/internal/libs/obs"
	"github.com/dsjohal14/docsearch/internal/scope/db"
	"github.com/dsjohal14/docsearch/internal/scope/search"
	"github.com/dsjohal14/docsearch/internal/source"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Init logger
	obs.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := obs.Logger("api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *obs.Metrics
	if cfg.MetricsEnabled {
		metrics = obs.NewMetrics(nil)
	}

	engine := search.New(
		search.WithLogger(obs.Logger("search")),
		search.WithMetrics(metrics),
	)

	// The index is loaded once before serving; a bad table aborts startup
	if err := loadIndex(ctx, cfg, engine, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to load index")
	}

	handler := apihttp.NewHandler(engine, apihttp.Limits{
		Default: cfg.DefaultLimit,
		Max:     cfg.MaxLimit,
	}, logger)

	r := setupRouter(handler, metrics)

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	logger.Info().Str("addr", addr).Msg("starting API server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("server stopped")
}

func setupRouter(h *apihttp.Handler, metrics *obs.Metrics) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// Routes
	r.Get("/health", h.HandleHealth)
	r.Get("/search", h.HandleSearchQuery)
	r.Post("/search", h.HandleSearch)
	r.Get("/tokens/{token}", h.HandleToken)
	r.Head("/tokens/{token}", h.HandleTokenHead)
	if metrics != nil {
		r.Handle("/metrics", metrics.Handler())
	}

	return r
}

// loadIndex reads every configured source and loads the engine once
func loadIndex(ctx context.Context, cfg *config.Config, engine *search.Engine, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sources := source.FromPaths(cfg.IndexPaths)

	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		// Tables are read once at startup; the pool is not needed afterwards
		defer database.Close()

		sources = append(sources, source.NewPostgresSource(database))
		logger.Info().Msg("using Postgres search_entries as an index source")
	}

	if len(sources) == 0 {
		return errors.New("no index sources configured (set DOCSEARCH_INDEX or DATABASE_URL)")
	}

	tables, err := source.LoadAll(ctx, logger, sources...)
	if err != nil {
		return err
	}
	if err := engine.Load(tables...); err != nil {
		return err
	}

	st := engine.Stats()
	logger.Info().
		Int("sources", len(sources)).
		Int("tokens", st.Tokens).
		Int("matches", st.Matches).
		Msg("index ready")
	return nil
}

// Package source provides connectors that produce search tables for loading.
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dsjohal14/docsearch/internal/scope/db"
	"github.com/dsjohal14/docsearch/internal/scope/index"
	"github.com/dsjohal14/docsearch/internal/scope/snapshot"
	"github.com/dsjohal14/docsearch/internal/scope/tables"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Source represents a provider of search tables
type Source interface {
	Name() string
	Tables(ctx context.Context) ([]index.Table, error)
}

// FileSource reads one table file (.js, .json, .yaml)
type FileSource struct {
	Path string
}

// NewFileSource creates a source for one table file
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Name returns the file path
func (s *FileSource) Name() string {
	return s.Path
}

// Tables reads the file
func (s *FileSource) Tables(ctx context.Context) ([]index.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := tables.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return []index.Table{t}, nil
}

// SnapshotSource reads a compiled snapshot
type SnapshotSource struct {
	Path string
}

// NewSnapshotSource creates a source for a snapshot file
func NewSnapshotSource(path string) *SnapshotSource {
	return &SnapshotSource{Path: path}
}

// Name returns the snapshot path
func (s *SnapshotSource) Name() string {
	return "snapshot:" + s.Path
}

// Tables reads every table in the snapshot
func (s *SnapshotSource) Tables(ctx context.Context) ([]index.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return snapshot.ReadFile(s.Path)
}

// PostgresSource reads tables from the search_entries table
type PostgresSource struct {
	DB *db.DB
}

// NewPostgresSource creates a source backed by db
func NewPostgresSource(d *db.DB) *PostgresSource {
	return &PostgresSource{DB: d}
}

// Name returns the source name
func (s *PostgresSource) Name() string {
	return "postgres"
}

// Tables queries the database
func (s *PostgresSource) Tables(ctx context.Context) ([]index.Table, error) {
	return s.DB.LoadTables(ctx)
}

// FromPaths builds sources for a list of paths. Paths ending in .snap are
// snapshots, everything else is a table file.
func FromPaths(paths []string) []Source {
	out := make([]Source, 0, len(paths))
	for _, p := range paths {
		if strings.HasSuffix(p, ".snap") {
			out = append(out, NewSnapshotSource(p))
			continue
		}
		out = append(out, NewFileSource(p))
	}
	return out
}

// LoadAll reads all sources concurrently and returns their tables in the
// order the sources were given. The first failure cancels the rest.
func LoadAll(ctx context.Context, logger zerolog.Logger, sources ...Source) ([]index.Table, error) {
	results := make([][]index.Table, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			start := time.Now()
			ts, err := src.Tables(gctx)
			if err != nil {
				return fmt.Errorf("source %s: %w", src.Name(), err)
			}
			results[i] = ts

			logger.Debug().
				Str("source", src.Name()).
				Int("tables", len(ts)).
				Dur("elapsed", time.Since(start)).
				Msg("source read")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []index.Table
	for _, ts := range results {
		out = append(out, ts...)
	}
	return out, nil
}

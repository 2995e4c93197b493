package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dsjohal14/docsearch/internal/scope/search"
	"github.com/rs/zerolog"
)

// Limits bounds the result count a client can ask for
type Limits struct {
	Default int
	Max     int
}

// Handler contains HTTP handlers for the API
type Handler struct {
	engine *search.Engine
	limits Limits
	logger zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(engine *search.Engine, limits Limits, logger zerolog.Logger) *Handler {
	if limits.Default <= 0 {
		limits.Default = 10
	}
	if limits.Max < limits.Default {
		limits.Max = limits.Default
	}
	return &Handler{
		engine: engine,
		limits: limits,
		logger: logger,
	}
}

// Helper functions used across all handlers

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeErrorDetails(w, status, message, code, "")
}

// writeErrorDetails is writeError with the underlying cause attached
func writeErrorDetails(w http.ResponseWriter, status int, message, code, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// writeEngineError maps engine errors to responses
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, search.ErrNotReady) {
		writeError(w, http.StatusServiceUnavailable, "index not loaded", "NOT_READY")
		return
	}
	h.logger.Error().Err(err).Msg("search failed")
	writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL")
}

// limit clamps a requested limit into [1, Max], 0 meaning the default
func (h *Handler) limit(requested int) int {
	switch {
	case requested <= 0:
		return h.limits.Default
	case requested > h.limits.Max:
		return h.limits.Max
	default:
		return requested
	}
}

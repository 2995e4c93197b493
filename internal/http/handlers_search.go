package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dsjohal14/docsearch/internal/scope/index"
	"github.com/dsjohal14/docsearch/internal/scope/search"
	"github.com/go-chi/chi/v5"
)

// HandleSearch runs a prefix or exact search from a JSON body
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn().Err(err).Msg("invalid search request")
		writeErrorDetails(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON", err.Error())
		return
	}

	h.search(w, req)
}

// HandleSearchQuery runs a search from query parameters:
// q, limit, exact, sorted
func (h *Handler) HandleSearchQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := SearchRequest{Query: q.Get("q")}

	var err error
	if v := q.Get("limit"); v != "" {
		if req.Limit, err = strconv.Atoi(v); err != nil {
			writeErrorDetails(w, http.StatusBadRequest, "limit must be an integer", "INVALID_LIMIT", err.Error())
			return
		}
	}
	if req.Exact, err = parseBool(q.Get("exact")); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "exact must be a boolean", "INVALID_FLAG", err.Error())
		return
	}
	if req.Sorted, err = parseBool(q.Get("sorted")); err != nil {
		writeErrorDetails(w, http.StatusBadRequest, "sorted must be a boolean", "INVALID_FLAG", err.Error())
		return
	}

	h.search(w, req)
}

func (h *Handler) search(w http.ResponseWriter, req SearchRequest) {
	limit := h.limit(req.Limit)
	hits, err := h.engine.Search(req.Query, search.Options{
		Limit:     limit,
		ExactOnly: req.Exact,
		Sorted:    req.Sorted,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	results := make([]SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = toResult(hit)
	}

	h.logger.Info().
		Str("query", req.Query).
		Int("results", len(results)).
		Int("limit", limit).
		Bool("exact", req.Exact).
		Msg("search completed")

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:      req.Query,
		Normalized: index.Normalize(req.Query),
		Results:    results,
		Count:      len(results),
	})
}

// HandleToken returns every match stored under one exact token
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	matches, err := h.engine.Lookup(token)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if len(matches) == 0 {
		writeError(w, http.StatusNotFound, "token not found", "NOT_FOUND")
		return
	}

	normalized := index.Normalize(token)
	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		results[i] = toResult(index.Hit{Token: normalized, Match: m})
	}

	writeJSON(w, http.StatusOK, TokenResponse{
		Token:   normalized,
		Results: results,
		Count:   len(results),
	})
}

// HandleTokenHead answers whether a token exists without a body:
// 200 when present, 404 when absent, 503 before the first load
func (h *Handler) HandleTokenHead(w http.ResponseWriter, r *http.Request) {
	s, err := h.engine.Store()
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if !s.Has(chi.URLParam(r, "token")) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func toResult(hit index.Hit) SearchResult {
	return SearchResult{
		Token:    hit.Token,
		Label:    hit.Label,
		Scope:    hit.Scope,
		Target:   hit.Target,
		External: hit.External,
	}
}

func parseBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

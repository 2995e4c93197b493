package httpapi

import "net/http"

// HandleHealth reports whether the index is loaded and how large it is.
// It answers 503 until the first successful load.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	st := h.engine.Stats()
	resp := HealthResponse{
		Status:  "ready",
		Tokens:  st.Tokens,
		Matches: st.Matches,
		Tables:  st.Tables,
	}

	status := http.StatusOK
	if !h.engine.Ready() {
		resp.Status = "loading"
		status = http.StatusServiceUnavailable
	}

	h.logger.Debug().Int("tokens", st.Tokens).Str("status", resp.Status).Msg("health check")

	writeJSON(w, status, resp)
}

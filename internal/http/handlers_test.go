package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dsjohal14/docsearch/internal/libs/obs"
	"github.com/dsjohal14/docsearch/internal/scope/index"
	"github.com/dsjohal14/docsearch/internal/scope/search"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func testTable() index.Table {
	return index.Table{
		Name: "all_9",
		Records: []index.Record{
			{Token: "id", Matches: []index.Match{{Label: "ID", Scope: "lbann", Target: "../namespacelbann.html#ab00e153"}}},
			{Token: "input_layer", Matches: []index.Match{
				{Label: "input_layer", Scope: "lbann", Target: "../classlbann_1_1input__layer.html"},
				{Label: "input_layer", Scope: "lbann::input_layer::input_layer()", Target: "../classlbann_1_1input__layer.html#aa22"},
			}},
			{Token: "int2", Matches: []index.Match{{Label: "int2", Scope: "lbann", Target: "#int2"}}},
			{Token: "intermodel_barrier", Matches: []index.Match{{Label: "intermodel_barrier", Scope: "lbann::lbann_comm", Target: "#b"}}},
			{Token: "intermodel_broadcast", Matches: []index.Match{{Label: "intermodel_broadcast", Scope: "lbann::lbann_comm", Target: "#c"}}},
			{Token: "intermodel_comm", Matches: []index.Match{{Label: "intermodel_comm", Scope: "lbann::lbann_comm", Target: "#m"}}},
			{Token: "invalid", Matches: []index.Match{{Label: "invalid", Scope: "lbann", Target: "#inv"}}},
		},
	}
}

func setupTestHandler(t *testing.T, load bool) (*search.Engine, *chi.Mux) {
	t.Helper()

	obs.InitLogger("error", false) // Quiet logs during tests
	logger := obs.Logger("test")

	engine := search.New(search.WithLogger(logger))
	if load {
		if err := engine.Load(testTable()); err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
	}
	handler := NewHandler(engine, Limits{Default: 3, Max: 5}, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Get("/health", handler.HandleHealth)
	r.Get("/search", handler.HandleSearchQuery)
	r.Post("/search", handler.HandleSearch)
	r.Get("/tokens/{token}", handler.HandleToken)
	r.Head("/tokens/{token}", handler.HandleTokenHead)

	return engine, r
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestHandleHealth(t *testing.T) {
	_, router := setupTestHandler(t, true)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	resp := decode[HealthResponse](t, w)
	if resp.Status != "ready" {
		t.Errorf("expected status ready, got %v", resp.Status)
	}
	if resp.Tokens != 7 || resp.Matches != 8 {
		t.Errorf("expected 7 tokens / 8 matches, got %d / %d", resp.Tokens, resp.Matches)
	}
}

func TestHandleHealthNotLoaded(t *testing.T) {
	_, router := setupTestHandler(t, false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
	if resp := decode[HealthResponse](t, w); resp.Status != "loading" {
		t.Errorf("expected status loading, got %v", resp.Status)
	}
}

func TestHandleSearchQuery(t *testing.T) {
	_, router := setupTestHandler(t, true)

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantCount  int
		wantFirst  string
	}{
		{"prefix with default limit", "/search?q=int", http.StatusOK, 3, "int2"},
		{"explicit limit", "/search?q=int&limit=1", http.StatusOK, 1, "int2"},
		{"limit clamped to max", "/search?q=i&limit=1000", http.StatusOK, 5, "id"},
		{"mixed case", "/search?q=INT2", http.StatusOK, 1, "int2"},
		{"exact", "/search?q=input_layer&exact=true", http.StatusOK, 2, "input_layer"},
		{"sorted", "/search?q=intermodel&sorted=1", http.StatusOK, 3, "intermodel_barrier"},
		{"empty query", "/search?q=", http.StatusOK, 0, ""},
		{"no match", "/search?q=zzz", http.StatusOK, 0, ""},
		{"bad limit", "/search?q=int&limit=abc", http.StatusBadRequest, 0, ""},
		{"bad flag", "/search?q=int&exact=maybe", http.StatusBadRequest, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			resp := decode[SearchResponse](t, w)
			if resp.Count != tt.wantCount || len(resp.Results) != tt.wantCount {
				t.Fatalf("expected %d results, got %d", tt.wantCount, resp.Count)
			}
			if tt.wantFirst != "" && resp.Results[0].Token != tt.wantFirst {
				t.Errorf("expected first token %s, got %s", tt.wantFirst, resp.Results[0].Token)
			}
		})
	}
}

func TestHandleSearch(t *testing.T) {
	_, router := setupTestHandler(t, true)

	body, _ := json.Marshal(SearchRequest{Query: "  ID  ", Exact: true})
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[SearchResponse](t, w)
	if resp.Normalized != "id" {
		t.Errorf("expected normalized id, got %s", resp.Normalized)
	}
	if resp.Count != 1 {
		t.Fatalf("expected 1 result, got %d", resp.Count)
	}
	if r := resp.Results[0]; r.Label != "ID" || r.Scope != "lbann" || r.Target != "../namespacelbann.html#ab00e153" {
		t.Errorf("unexpected result: %+v", r)
	}
}

func TestHandleSearchInvalidJSON(t *testing.T) {
	_, router := setupTestHandler(t, true)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if resp := decode[ErrorResponse](t, w); resp.Code != "INVALID_JSON" {
		t.Errorf("expected code INVALID_JSON, got %s", resp.Code)
	}
}

func TestHandleSearchNotReady(t *testing.T) {
	_, router := setupTestHandler(t, false)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?q=id", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
	if resp := decode[ErrorResponse](t, w); resp.Code != "NOT_READY" {
		t.Errorf("expected code NOT_READY, got %s", resp.Code)
	}
}

func TestHandleToken(t *testing.T) {
	engine, router := setupTestHandler(t, true)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tokens/Input_Layer", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[TokenResponse](t, w)
	if resp.Token != "input_layer" || resp.Count != 2 {
		t.Errorf("expected 2 input_layer matches, got %+v", resp)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tokens/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}

	if !engine.Ready() {
		t.Error("engine should stay ready")
	}
}

func TestHandleSearchQueryErrorDetails(t *testing.T) {
	_, router := setupTestHandler(t, true)

	tests := []struct {
		name    string
		url     string
		code    string
		details string
	}{
		{"limit", "/search?q=int&limit=abc", "INVALID_LIMIT", `"abc"`},
		{"exact", "/search?q=int&exact=maybe", "INVALID_FLAG", `"maybe"`},
		{"sorted", "/search?q=int&sorted=2", "INVALID_FLAG", `"2"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", w.Code)
			}
			resp := decode[ErrorResponse](t, w)
			if resp.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp.Code)
			}
			if !strings.Contains(resp.Details, tt.details) {
				t.Errorf("expected details to mention %s, got %q", tt.details, resp.Details)
			}
		})
	}
}

func TestHandleTokenHead(t *testing.T) {
	_, router := setupTestHandler(t, true)

	tests := []struct {
		path string
		want int
	}{
		{"/tokens/Input_Layer", http.StatusOK},
		{"/tokens/input", http.StatusNotFound},
		{"/tokens/missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodHead, tt.path, nil))

		if w.Code != tt.want {
			t.Errorf("HEAD %s: expected status %d, got %d", tt.path, tt.want, w.Code)
		}
		if w.Body.Len() != 0 {
			t.Errorf("HEAD %s: expected empty body, got %q", tt.path, w.Body.String())
		}
	}

	_, unloaded := setupTestHandler(t, false)
	w := httptest.NewRecorder()
	unloaded.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/tokens/id", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 before load, got %d", w.Code)
	}
}

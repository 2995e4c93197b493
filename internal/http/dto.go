// Package httpapi provides HTTP handlers and data transfer objects for the search API.
package httpapi

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string   `json:"status"`
	Tokens  int      `json:"tokens"`
	Matches int      `json:"matches"`
	Tables  []string `json:"tables,omitempty"`
}

// SearchRequest represents search request
type SearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`  // Default from config
	Exact  bool   `json:"exact,omitempty"`  // Exact token instead of prefix
	Sorted bool   `json:"sorted,omitempty"` // Lexicographic token order
}

// SearchResult represents a single matched symbol
type SearchResult struct {
	Token    string `json:"token"`
	Label    string `json:"label"`
	Scope    string `json:"scope,omitempty"`
	Target   string `json:"target"`
	External bool   `json:"external,omitempty"`
}

// SearchResponse represents search results
type SearchResponse struct {
	Query      string         `json:"query"`
	Normalized string         `json:"normalized"`
	Results    []SearchResult `json:"results"`
	Count      int            `json:"count"`
}

// TokenResponse represents an exact token lookup
type TokenResponse struct {
	Token   string         `json:"token"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

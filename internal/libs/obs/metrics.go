package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the search service
type Metrics struct {
	LoadsTotal         *prometheus.CounterVec
	IndexedTokens      prometheus.Gauge
	IndexedMatches     prometheus.Gauge
	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg gets a private registry, which keeps tests independent.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_loads_total",
				Help: "Index load attempts by status (ok, malformed).",
			},
			[]string{"status"},
		),
		IndexedTokens: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsearch_indexed_tokens",
				Help: "Distinct tokens in the loaded index.",
			},
		),
		IndexedMatches: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsearch_indexed_matches",
				Help: "Matches across all tokens in the loaded index.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsearch_search_queries_total",
				Help: "Search queries by mode (prefix, exact) and outcome (hit, zero_result, empty, not_ready).",
			},
			[]string{"mode", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsearch_search_latency_seconds",
				Help:    "Search latency in seconds.",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
			[]string{"mode"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docsearch_search_results_count",
				Help:    "Results returned per search.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.LoadsTotal,
		m.IndexedTokens,
		m.IndexedMatches,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
	)

	return m
}

// Handler returns the scrape handler for the registry the metrics live in
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Package search answers user queries against a loaded documentation index.
package search

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dsjohal14/docsearch/internal/libs/obs"
	"github.com/dsjohal14/docsearch/internal/scope/index"
	"github.com/rs/zerolog"
)

// ErrNotReady is returned by queries issued before the first successful Load
var ErrNotReady = errors.New("search index not loaded")

// State is the engine lifecycle state
type State int

const (
	Unloaded State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "unloaded"
}

// Options controls a single Search call
type Options struct {
	Limit     int  // 0 means unbounded
	ExactOnly bool // exact token lookup instead of prefix
	Sorted    bool // lexicographic token order instead of load order
}

// Stats summarizes the loaded index
type Stats struct {
	State   State    `json:"-"`
	Tokens  int      `json:"tokens"`
	Matches int      `json:"matches"`
	Tables  []string `json:"tables"`
	Loads   int      `json:"loads"`
}

// Engine serves queries against an index.Store. Reads never lock: the store
// is swapped in atomically by Load, and a store is immutable once built.
type Engine struct {
	loadMu  sync.Mutex
	store   atomic.Pointer[index.Store]
	loads   atomic.Int64
	logger  zerolog.Logger
	metrics *obs.Metrics
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics records loads and searches on m
func WithMetrics(m *obs.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine in the Unloaded state
func New(opts ...Option) *Engine {
	e := &Engine{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	if e.store.Load() == nil {
		return Unloaded
	}
	return Ready
}

// Ready reports whether queries can be served
func (e *Engine) Ready() bool {
	return e.State() == Ready
}

// Load merges tables into the engine. The first successful call moves the
// engine to Ready; later calls append to what is already loaded. On error
// the engine keeps serving whatever it served before.
func (e *Engine) Load(tables ...index.Table) error {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	var (
		next *index.Store
		err  error
	)
	if cur := e.store.Load(); cur != nil {
		next, err = cur.Extend(tables...)
	} else {
		next, err = index.Build(tables...)
	}
	if err != nil {
		e.recordLoad("malformed", nil)
		e.logger.Error().Err(err).Int("tables", len(tables)).Msg("index load rejected")
		return err
	}

	e.store.Store(next)
	e.loads.Add(1)
	e.recordLoad("ok", next)

	e.logger.Info().
		Int("tables", len(tables)).
		Int("tokens", next.Len()).
		Int("matches", next.MatchCount()).
		Msg("index loaded")
	return nil
}

// Store returns the current store, or ErrNotReady
func (e *Engine) Store() (*index.Store, error) {
	s := e.store.Load()
	if s == nil {
		return nil, ErrNotReady
	}
	return s, nil
}

// Lookup returns the matches of one exact token
func (e *Engine) Lookup(token string) ([]index.Match, error) {
	s, err := e.Store()
	if err != nil {
		return nil, err
	}
	return s.LookupExact(token), nil
}

// Search normalizes raw and runs a prefix (or exact) lookup.
// An input with no searchable characters yields no results and no error.
func (e *Engine) Search(raw string, opts Options) ([]index.Hit, error) {
	start := time.Now()
	mode := "prefix"
	if opts.ExactOnly {
		mode = "exact"
	}

	s, err := e.Store()
	if err != nil {
		e.recordSearch(mode, "not_ready", 0, start)
		return nil, err
	}

	q := index.Normalize(raw)
	if q == "" {
		e.recordSearch(mode, "empty", 0, start)
		return []index.Hit{}, nil
	}

	var hits []index.Hit
	switch {
	case opts.ExactOnly:
		for _, m := range s.LookupExact(q) {
			hits = append(hits, index.Hit{Token: q, Match: m})
		}
	case opts.Sorted:
		hits = s.LookupPrefixSorted(q)
	default:
		hits = s.LookupPrefix(q)
	}

	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	if hits == nil {
		hits = []index.Hit{}
	}

	outcome := "hit"
	if len(hits) == 0 {
		outcome = "zero_result"
	}
	e.recordSearch(mode, outcome, len(hits), start)

	e.logger.Debug().
		Str("query", raw).
		Str("normalized", q).
		Str("mode", mode).
		Int("results", len(hits)).
		Msg("search completed")
	return hits, nil
}

// Stats returns counters for the loaded index
func (e *Engine) Stats() Stats {
	st := Stats{State: e.State(), Loads: int(e.loads.Load())}
	if s := e.store.Load(); s != nil {
		st.Tokens = s.Len()
		st.Matches = s.MatchCount()
		st.Tables = s.Tables()
	}
	return st
}

func (e *Engine) recordLoad(status string, s *index.Store) {
	if e.metrics == nil {
		return
	}
	e.metrics.LoadsTotal.WithLabelValues(status).Inc()
	if s != nil {
		e.metrics.IndexedTokens.Set(float64(s.Len()))
		e.metrics.IndexedMatches.Set(float64(s.MatchCount()))
	}
}

func (e *Engine) recordSearch(mode, outcome string, n int, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(mode, outcome).Inc()
	e.metrics.SearchLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	e.metrics.SearchResultsCount.Observe(float64(n))
}

package index

import (
	"slices"
	"sort"
	"strings"
)

// entry is the merged state for one token
type entry struct {
	pos     int // first-load position
	matches []Match
}

// Store is an immutable token table. All methods are safe for concurrent use
// because nothing writes to a Store after Build or Extend returns it.
type Store struct {
	tokens  []string // first-load order
	sorted  []string // lexicographic
	entries map[string]*entry
	tables  []string
	matches int
}

// Build validates and merges the given tables into a new Store.
// Repeated tokens have their matches concatenated in supply order; nothing
// is deduplicated.
func Build(tables ...Table) (*Store, error) {
	s := &Store{entries: make(map[string]*entry)}
	if err := s.merge(tables); err != nil {
		return nil, err
	}
	return s, nil
}

// Extend returns a new Store holding the receiver's records followed by the
// records of tables. The receiver is left untouched, also on error.
func (s *Store) Extend(tables ...Table) (*Store, error) {
	next := &Store{
		tokens:  slices.Clone(s.tokens),
		entries: make(map[string]*entry, len(s.entries)),
		tables:  slices.Clone(s.tables),
		matches: s.matches,
	}
	for tok, e := range s.entries {
		next.entries[tok] = &entry{pos: e.pos, matches: slices.Clone(e.matches)}
	}

	if err := next.merge(tables); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Store) merge(tables []Table) error {
	if err := validate(tables); err != nil {
		return err
	}

	for _, t := range tables {
		s.tables = append(s.tables, t.Name)
		for _, rec := range t.Records {
			tok := Normalize(rec.Token)
			e, ok := s.entries[tok]
			if !ok {
				e = &entry{pos: len(s.tokens)}
				s.entries[tok] = e
				s.tokens = append(s.tokens, tok)
			}
			e.matches = append(e.matches, rec.Matches...)
			s.matches += len(rec.Matches)
		}
	}

	s.sorted = slices.Clone(s.tokens)
	slices.Sort(s.sorted)
	return nil
}

// validate checks every record of every table before any is merged
func validate(tables []Table) error {
	for _, t := range tables {
		for i, rec := range t.Records {
			bad := &MalformedIndexError{Table: t.Name, Record: i, Token: rec.Token}
			switch {
			case rec.Token == "":
				bad.Reason = "empty token"
				return bad
			case Normalize(rec.Token) == "":
				bad.Reason = "token has no searchable characters"
				return bad
			case len(rec.Matches) == 0:
				bad.Reason = "empty matches"
				return bad
			}
		}
	}
	return nil
}

// LookupExact returns the matches stored under token, or nil
func (s *Store) LookupExact(token string) []Match {
	e, ok := s.entries[Normalize(token)]
	if !ok {
		return nil
	}
	return slices.Clone(e.matches)
}

// LookupPrefix returns the matches of every token starting with prefix.
// Tokens come in first-load order, matches in stored order.
func (s *Store) LookupPrefix(prefix string) []Hit {
	toks := s.prefixRange(Normalize(prefix))
	sort.Slice(toks, func(i, j int) bool {
		return s.entries[toks[i]].pos < s.entries[toks[j]].pos
	})
	return s.hits(toks)
}

// LookupPrefixSorted is LookupPrefix with tokens in lexicographic order
func (s *Store) LookupPrefixSorted(prefix string) []Hit {
	return s.hits(s.prefixRange(Normalize(prefix)))
}

// prefixRange returns a fresh slice of the sorted tokens starting with p
func (s *Store) prefixRange(p string) []string {
	start := sort.SearchStrings(s.sorted, p)
	end := start
	for end < len(s.sorted) && strings.HasPrefix(s.sorted[end], p) {
		end++
	}
	return slices.Clone(s.sorted[start:end])
}

func (s *Store) hits(toks []string) []Hit {
	n := 0
	for _, tok := range toks {
		n += len(s.entries[tok].matches)
	}
	if n == 0 {
		return nil
	}

	out := make([]Hit, 0, n)
	for _, tok := range toks {
		for _, m := range s.entries[tok].matches {
			out = append(out, Hit{Token: tok, Match: m})
		}
	}
	return out
}

// Has reports whether token is present
func (s *Store) Has(token string) bool {
	_, ok := s.entries[Normalize(token)]
	return ok
}

// Tokens returns all tokens in first-load order
func (s *Store) Tokens() []string {
	return slices.Clone(s.tokens)
}

// Len returns the number of distinct tokens
func (s *Store) Len() int {
	return len(s.tokens)
}

// MatchCount returns the number of matches across all tokens
func (s *Store) MatchCount() int {
	return s.matches
}

// Tables returns the names of the loaded tables in load order
func (s *Store) Tables() []string {
	return slices.Clone(s.tables)
}

// Records returns the merged table content, one record per token in
// first-load order
func (s *Store) Records() []Record {
	out := make([]Record, 0, len(s.tokens))
	for _, tok := range s.tokens {
		out = append(out, Record{Token: tok, Matches: slices.Clone(s.entries[tok].matches)})
	}
	return out
}

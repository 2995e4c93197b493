// Package index holds the token -> matches table behind the documentation search box.
package index

// Match is one documented symbol reachable from a token
type Match struct {
	Label    string `json:"label" yaml:"label"`
	Scope    string `json:"scope,omitempty" yaml:"scope,omitempty"`
	Target   string `json:"target" yaml:"target"`
	External bool   `json:"external,omitempty" yaml:"external,omitempty"`
}

// Record is one token row of an input table
type Record struct {
	Token   string  `json:"token" yaml:"token"`
	Matches []Match `json:"matches" yaml:"matches"`
}

// Table is the unit of input, usually one generated data file
type Table struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Records []Record `json:"records" yaml:"records"`
}

// Hit is a match together with the token it was found under
type Hit struct {
	Token string `json:"token"`
	Match
}

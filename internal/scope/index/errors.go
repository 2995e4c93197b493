package index

import (
	"errors"
	"fmt"
)

// ErrMalformedIndex is matched by every MalformedIndexError
var ErrMalformedIndex = errors.New("malformed index")

// MalformedIndexError reports the first record that broke a table invariant
type MalformedIndexError struct {
	Table  string
	Record int
	Token  string
	Reason string
}

func (e *MalformedIndexError) Error() string {
	table := e.Table
	if table == "" {
		table = "<unnamed>"
	}
	return fmt.Sprintf("malformed index: table %s record %d (token %q): %s", table, e.Record, e.Token, e.Reason)
}

// Is lets errors.Is(err, ErrMalformedIndex) succeed
func (e *MalformedIndexError) Is(target error) bool {
	return target == ErrMalformedIndex
}

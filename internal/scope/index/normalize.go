package index

import (
	"strings"
	"unicode"
)

// Normalize turns raw text into token form: trimmed, lowercased, and
// reduced to letters, digits, '_' and '~'.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsDigit(r), r == '_', r == '~':
			b.WriteRune(r)
		}
	}
	return b.String()
}

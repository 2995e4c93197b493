package tables

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dsjohal14/docsearch/internal/scope/index"
)

// Doxygen searchData file layout:
//
//	var searchData=
//	[
//	  ['id',['ID',['../namespacelbann.html#ab00e...',1,'lbann']]],
//	  ['input_5flayer',['input_layer',['../a.html',1,'lbann'],['../a.html#aa2',1,'lbann::input_layer::input_layer()']]],
//	  ...
//	];
//
// Each row is [token, [label, [target, inFrame, scope]...]]. Tokens escape
// every non-alphanumeric byte as _XX (lowercase hex), so '_' itself is _5f.

// ReadSearchData parses one Doxygen searchData script into a table.
// Rows sharing a token stay separate records; the store merges them.
func ReadSearchData(r io.Reader, name string) (index.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return index.Table{}, fmt.Errorf("failed to read search data: %w", err)
	}

	src := string(data)
	start := strings.IndexByte(src, '[')
	if start < 0 {
		return index.Table{}, &SyntaxError{Offset: 0, Msg: "no searchData array"}
	}

	p := &jsParser{src: src, pos: start}
	v, err := p.value()
	if err != nil {
		return index.Table{}, err
	}
	rows, ok := v.([]any)
	if !ok {
		return index.Table{}, &SyntaxError{Offset: start, Msg: "searchData is not an array"}
	}

	table := index.Table{Name: name, Records: make([]index.Record, 0, len(rows))}
	for i, row := range rows {
		rec, err := searchDataRecord(row)
		if err != nil {
			return index.Table{}, fmt.Errorf("row %d: %w", i, err)
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

func searchDataRecord(row any) (index.Record, error) {
	cols, ok := row.([]any)
	if !ok || len(cols) != 2 {
		return index.Record{}, fmt.Errorf("expected [token, entry], got %v", row)
	}
	token, ok := cols[0].(string)
	if !ok {
		return index.Record{}, fmt.Errorf("token is not a string: %v", cols[0])
	}
	entry, ok := cols[1].([]any)
	if !ok || len(entry) == 0 {
		return index.Record{}, fmt.Errorf("token %s: expected [label, links...]", token)
	}
	label, ok := entry[0].(string)
	if !ok {
		return index.Record{}, fmt.Errorf("token %s: label is not a string", token)
	}

	rec := index.Record{Token: DecodeToken(token), Matches: make([]index.Match, 0, len(entry)-1)}
	for _, l := range entry[1:] {
		link, ok := l.([]any)
		if !ok || len(link) < 1 {
			return index.Record{}, fmt.Errorf("token %s: malformed link %v", token, l)
		}
		m := index.Match{Label: label}
		if m.Target, ok = link[0].(string); !ok {
			return index.Record{}, fmt.Errorf("token %s: target is not a string", token)
		}
		if len(link) > 1 {
			flag, ok := link[1].(int)
			if !ok {
				return index.Record{}, fmt.Errorf("token %s: link flag is not an integer", token)
			}
			m.External = flag == 0
		}
		if len(link) > 2 {
			m.Scope, _ = link[2].(string)
		}
		rec.Matches = append(rec.Matches, m)
	}
	return rec, nil
}

// DecodeToken reverses the _XX escaping Doxygen applies to search tokens.
// Malformed escapes are kept verbatim.
func DecodeToken(tok string) string {
	if !strings.Contains(tok, "_") {
		return tok
	}

	var b strings.Builder
	b.Grow(len(tok))
	for i := 0; i < len(tok); i++ {
		if tok[i] == '_' && i+2 < len(tok) {
			if v, err := strconv.ParseUint(tok[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(tok[i])
	}
	return b.String()
}

// SyntaxError reports where a script stopped parsing
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("search data syntax error at offset %d: %s", e.Offset, e.Msg)
}

// jsParser reads the JavaScript literal subset Doxygen emits: nested arrays,
// quoted strings and integers.
type jsParser struct {
	src string
	pos int
}

func (p *jsParser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *jsParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsParser) value() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}

	switch c := p.src[p.pos]; {
	case c == '[':
		return p.array()
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.integer()
	default:
		return nil, p.errorf("unexpected character %q", c)
	}
}

func (p *jsParser) array() ([]any, error) {
	p.pos++ // '['
	out := []any{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated array")
		}
		if p.src[p.pos] == ']' {
			p.pos++
			return out, nil
		}

		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated array")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ']':
		default:
			return nil, p.errorf("expected ',' or ']', got %q", p.src[p.pos])
		}
	}
}

func (p *jsParser) str() (string, error) {
	quote := p.src[p.pos]
	p.pos++

	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return "", p.errorf("unterminated escape")
			}
			p.pos++
			switch e := p.src[p.pos]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'u':
				if p.pos+4 >= len(p.src) {
					return "", p.errorf("short unicode escape")
				}
				v, err := strconv.ParseUint(p.src[p.pos+1:p.pos+5], 16, 16)
				if err != nil {
					return "", p.errorf("bad unicode escape")
				}
				b.WriteRune(rune(v))
				p.pos += 4
			default:
				b.WriteByte(e)
			}
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *jsParser) integer() (int, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		lit := p.src[start:p.pos]
		p.pos = start
		return 0, p.errorf("bad number %q", lit)
	}
	return n, nil
}

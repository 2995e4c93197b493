// Package tables reads generated search tables from disk.
//
// Supported formats, chosen by file extension:
//
//   - .js: Doxygen searchData scripts (search/all_*.js, search/functions_*.js, ...)
//   - .json: {"name": ..., "records": [{"token": ..., "matches": [...]}]}
//   - .yaml, .yml: the JSON shape written as YAML
package tables

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsjohal14/docsearch/internal/scope/index"
	"gopkg.in/yaml.v3"
)

// ReadFile reads one table file. The table name defaults to the file name
// without its extension.
func ReadFile(path string) (index.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return index.Table{}, fmt.Errorf("failed to open table %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	ext := strings.ToLower(filepath.Ext(path))
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var t index.Table
	switch ext {
	case ".js":
		t, err = ReadSearchData(f, name)
	case ".json":
		t, err = ReadJSON(f)
	case ".yaml", ".yml":
		t, err = ReadYAML(f)
	default:
		return index.Table{}, fmt.Errorf("unsupported table format %q: %s", ext, path)
	}
	if err != nil {
		return index.Table{}, fmt.Errorf("failed to parse table %s: %w", path, err)
	}

	if t.Name == "" {
		t.Name = name
	}
	return t, nil
}

// ReadJSON decodes a table in the JSON shape
func ReadJSON(r io.Reader) (index.Table, error) {
	var t index.Table
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return index.Table{}, err
	}
	return t, nil
}

// ReadYAML decodes a table in the YAML shape
func ReadYAML(r io.Reader) (index.Table, error) {
	var t index.Table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		if err == io.EOF {
			return index.Table{}, nil
		}
		return index.Table{}, err
	}
	return t, nil
}

// WriteJSON encodes a table in the JSON shape
func WriteJSON(w io.Writer, t index.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

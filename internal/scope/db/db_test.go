package db

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/dsjohal14/docsearch/internal/scope/index"
)

func TestNewInvalidConnection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Test with invalid connection string
	_, err := New(ctx, "invalid://connection")
	if err == nil {
		t.Error("expected error with invalid connection string, got nil")
	}
}

func TestGroupRows(t *testing.T) {
	rows := []EntryRow{
		{TableSeq: 0, TableName: "all_9", Position: 0, Token: "id", Label: "ID", Scope: "lbann", Target: "#id"},
		{TableSeq: 0, TableName: "all_9", Position: 1, Token: "input_layer", Label: "input_layer", Scope: "lbann", Target: "#class"},
		{TableSeq: 0, TableName: "all_9", Position: 2, Token: "input_layer", Label: "input_layer", Scope: "lbann::input_layer::input_layer(a)", Target: "#ctor1"},
		{TableSeq: 0, TableName: "all_9", Position: 2, Token: "input_layer", Label: "input_layer", Scope: "lbann::input_layer::input_layer(b)", Target: "#ctor2"},
		{TableSeq: 1, TableName: "functions_3", Position: 0, Token: "columnmax", Label: "ColumnMax", Target: "#cm", External: true},
	}

	tables := GroupRows(rows)
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
	if tables[0].Name != "all_9" || len(tables[0].Records) != 3 {
		t.Fatalf("unexpected first table: %+v", tables[0])
	}
	if got := tables[0].Records[2].Matches; len(got) != 2 || got[1].Target != "#ctor2" {
		t.Errorf("expected two constructor matches in order, got %+v", got)
	}
	if m := tables[1].Records[0].Matches[0]; !m.External || m.Scope != "" {
		t.Errorf("unexpected external match: %+v", m)
	}
}

func TestGroupRowsEmpty(t *testing.T) {
	if tables := GroupRows(nil); len(tables) != 0 {
		t.Errorf("expected no tables, got %d", len(tables))
	}
}

func TestFlattenTablesKeepsOrder(t *testing.T) {
	tables := []index.Table{
		{Name: "all_9", Records: []index.Record{
			{Token: "input_layer", Matches: []index.Match{
				{Label: "input_layer", Scope: "lbann", Target: "#class"},
				{Label: "input_layer", Scope: "lbann::input_layer", Target: "#ctor"},
			}},
			{Token: "input_layer", Matches: []index.Match{{Label: "input_layer", Target: "#again"}}},
		}},
		{Name: "functions_3", Records: []index.Record{
			{Token: "columnmax", Matches: []index.Match{{Label: "ColumnMax", Target: "#cm", External: true}}},
		}},
	}

	rows := FlattenTables(tables)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if r := rows[1]; r.Position != 0 || r.MatchSeq != 1 || r.Target != "#ctor" {
		t.Errorf("unexpected second row: %+v", r)
	}
	if r := rows[2]; r.Position != 1 || r.MatchSeq != 0 {
		t.Errorf("repeated token should get its own position, got %+v", r)
	}
	if r := rows[3]; r.TableSeq != 1 || r.TableName != "functions_3" || !r.External {
		t.Errorf("unexpected last row: %+v", r)
	}

	// Repeated tokens stay separate records so the store merges them
	back := GroupRows(rows)
	if len(back) != 2 || len(back[0].Records) != 2 || len(back[0].Records[0].Matches) != 2 {
		t.Errorf("unexpected regrouped tables: %+v", back)
	}
}

func TestReplaceAndLoadTables(t *testing.T) {
	// Clears search_entries, so it only runs against a dedicated database
	url := os.Getenv("DOCSEARCH_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DOCSEARCH_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer d.Close()

	if err := d.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() failed: %v", err)
	}
	// Idempotent
	if err := d.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema() failed: %v", err)
	}

	in := []index.Table{
		{Name: "all_9", Records: []index.Record{
			{Token: "id", Matches: []index.Match{{Label: "ID", Scope: "lbann", Target: "#id"}}},
			{Token: "input_layer", Matches: []index.Match{
				{Label: "input_layer", Scope: "lbann", Target: "#class"},
				{Label: "input_layer", Target: "#ctor"},
			}},
		}},
		{Name: "functions_3", Records: []index.Record{
			{Token: "columnmax", Matches: []index.Match{{Label: "ColumnMax", Target: "#cm", External: true}}},
		}},
	}

	n, err := d.ReplaceTables(ctx, in)
	if err != nil {
		t.Fatalf("ReplaceTables() failed: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 rows copied, got %d", n)
	}

	out, err := d.LoadTables(ctx)
	if err != nil {
		t.Fatalf("LoadTables() failed: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("tables changed on the way through Postgres:\nwant %+v\ngot  %+v", in, out)
	}

	// A second replace drops the previous content
	if _, err := d.ReplaceTables(ctx, in[1:]); err != nil {
		t.Fatalf("second ReplaceTables() failed: %v", err)
	}
	out, err = d.LoadTables(ctx)
	if err != nil {
		t.Fatalf("LoadTables() failed: %v", err)
	}
	if len(out) != 1 || out[0].Name != "functions_3" {
		t.Errorf("expected only functions_3, got %+v", out)
	}
}

package db

import (
	"context"
	"fmt"

	"github.com/dsjohal14/docsearch/internal/scope/index"
	"github.com/jackc/pgx/v5"
)

// Schema is the table the documentation generator writes into. One row per
// match; rows sharing (table_seq, position) form one token record.
const Schema = `
CREATE TABLE IF NOT EXISTS search_entries (
	table_seq  INTEGER NOT NULL,
	table_name TEXT    NOT NULL,
	position   INTEGER NOT NULL,
	match_seq  INTEGER NOT NULL,
	token      TEXT    NOT NULL,
	label      TEXT    NOT NULL,
	scope      TEXT,
	target     TEXT    NOT NULL,
	external   BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (table_seq, position, match_seq)
)`

// EntryRow is one row of search_entries
type EntryRow struct {
	TableSeq  int
	TableName string
	Position  int
	MatchSeq  int
	Token     string
	Label     string
	Scope     string
	Target    string
	External  bool
}

// LoadTables reads every table stored in search_entries, in table order
func (d *DB) LoadTables(ctx context.Context) ([]index.Table, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT table_seq, table_name, position, match_seq, token, label, scope, target, external
		FROM search_entries
		ORDER BY table_seq ASC, position ASC, match_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query search entries: %w", err)
	}
	defer rows.Close()

	var entries []EntryRow
	for rows.Next() {
		var e EntryRow
		var scope *string

		if err := rows.Scan(&e.TableSeq, &e.TableName, &e.Position, &e.MatchSeq, &e.Token, &e.Label, &scope, &e.Target, &e.External); err != nil {
			return nil, fmt.Errorf("failed to scan search entry: %w", err)
		}
		if scope != nil {
			e.Scope = *scope
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search entries: %w", err)
	}

	return GroupRows(entries), nil
}

var entryColumns = []string{
	"table_seq", "table_name", "position", "match_seq",
	"token", "label", "scope", "target", "external",
}

// ReplaceTables swaps the content of search_entries for tables in one
// transaction. Readers see either the old tables or the new ones.
func (d *DB) ReplaceTables(ctx context.Context, tables []index.Table) (int64, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM search_entries`); err != nil {
		return 0, fmt.Errorf("failed to clear search entries: %w", err)
	}

	entries := FlattenTables(tables)
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"search_entries"}, entryColumns,
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			var scope any
			if e.Scope != "" {
				scope = e.Scope
			}
			return []any{e.TableSeq, e.TableName, e.Position, e.MatchSeq,
				e.Token, e.Label, scope, e.Target, e.External}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("failed to copy search entries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit search entries: %w", err)
	}
	return n, nil
}

// FlattenTables is the inverse of GroupRows: one row per match
func FlattenTables(tables []index.Table) []EntryRow {
	var rows []EntryRow
	for ti, t := range tables {
		for pos, rec := range t.Records {
			for mi, m := range rec.Matches {
				rows = append(rows, EntryRow{
					TableSeq:  ti,
					TableName: t.Name,
					Position:  pos,
					MatchSeq:  mi,
					Token:     rec.Token,
					Label:     m.Label,
					Scope:     m.Scope,
					Target:    m.Target,
					External:  m.External,
				})
			}
		}
	}
	return rows
}

// GroupRows folds ordered rows into tables and token records
func GroupRows(rows []EntryRow) []index.Table {
	var tables []index.Table
	for i, r := range rows {
		newTable := i == 0 || r.TableSeq != rows[i-1].TableSeq
		if newTable {
			tables = append(tables, index.Table{Name: r.TableName})
		}
		t := &tables[len(tables)-1]

		if newTable || r.Position != rows[i-1].Position {
			t.Records = append(t.Records, index.Record{Token: r.Token})
		}
		rec := &t.Records[len(t.Records)-1]
		rec.Matches = append(rec.Matches, index.Match{
			Label:    r.Label,
			Scope:    r.Scope,
			Target:   r.Target,
			External: r.External,
		})
	}
	return tables
}

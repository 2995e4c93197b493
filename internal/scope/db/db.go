// Package db reads and writes generated search tables in PostgreSQL.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB holds the pool used for the search_entries table
type DB struct {
	pool *pgxpool.Pool
}

// New connects to connString and checks the server answers
func New(ctx context.Context, connString string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// EnsureSchema creates search_entries when it does not exist yet
func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create search_entries: %w", err)
	}
	return nil
}

// Close releases the pool
func (d *DB) Close() {
	d.pool.Close()
}

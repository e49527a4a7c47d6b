// Package postgreskv provides a [kv.Backend] backed by a PostgreSQL table.
//
// Use it when several narrator processes share one campaign database. The
// caller owns the connection or pool and must call [Store.Migrate] once
// before issuing requests.
package postgreskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/dungeonmaster/pkg/kv"
)

// Schema is the SQL DDL for the kv_items table.
const Schema = `
CREATE TABLE IF NOT EXISTS kv_items (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [Store]. Both *pgxpool.Pool and
// *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Compile-time interface check.
var _ kv.Backend = (*Store)(nil)

// Store is a PostgreSQL-backed [kv.Backend].
type Store struct {
	db DB
}

// New wraps db. It does not run migrations.
func New(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pgx pool for dsn, runs [Store.Migrate] and returns the
// store together with the pool so the caller can close it on shutdown.
func Connect(ctx context.Context, dsn string) (*Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("postgreskv: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgreskv: ping: %w", err)
	}
	s := New(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool, nil
}

// Migrate executes [Schema].
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgreskv: migrate: %w", err)
	}
	return nil
}

// GetItem implements [kv.Backend.GetItem].
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM kv_items WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgreskv: get %q: %w", key, err)
	}
	return value, true, nil
}

// SetItem implements [kv.Backend.SetItem].
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO kv_items (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	if _, err := s.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("postgreskv: set %q: %w", key, err)
	}
	return nil
}

// RemoveItem implements [kv.Backend.RemoveItem].
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM kv_items WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgreskv: remove %q: %w", key, err)
	}
	return nil
}

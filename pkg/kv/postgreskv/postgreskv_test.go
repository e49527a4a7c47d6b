package postgreskv

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ---------------------------------------------------------------------------
// Test helpers: mock DB types
// ---------------------------------------------------------------------------

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

type execCall struct {
	sql  string
	args []any
}

type mockDB struct {
	rows  map[string]string
	execs []execCall
	err   error
}

func (m *mockDB) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	return &mockRow{scanFunc: func(dest ...any) error {
		if m.err != nil {
			return m.err
		}
		v, ok := m.rows[args[0].(string)]
		if !ok {
			return pgx.ErrNoRows
		}
		*dest[0].(*string) = v
		return nil
	}}
}

func (m *mockDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.execs = append(m.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, m.err
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestStore_GetItem(t *testing.T) {
	t.Parallel()
	db := &mockDB{rows: map[string]string{"dungeonmaster-session": `{"id":"s1"}`}}
	s := New(db)

	v, ok, err := s.GetItem(context.Background(), "dungeonmaster-session")
	if err != nil || !ok || v != `{"id":"s1"}` {
		t.Fatalf("GetItem = %q, %v, %v", v, ok, err)
	}

	_, ok, err = s.GetItem(context.Background(), "absent")
	if err != nil || ok {
		t.Fatalf("GetItem(absent) = ok %v, err %v; want false, nil", ok, err)
	}
}

func TestStore_GetItemError(t *testing.T) {
	t.Parallel()
	s := New(&mockDB{err: errors.New("connection reset")})
	_, _, err := s.GetItem(context.Background(), "k")
	if err == nil || !strings.Contains(err.Error(), "postgreskv: get") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestStore_SetItemUpserts(t *testing.T) {
	t.Parallel()
	db := &mockDB{}
	s := New(db)
	if err := s.SetItem(context.Background(), "k", "v"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if len(db.execs) != 1 {
		t.Fatalf("expected 1 exec, got %d", len(db.execs))
	}
	call := db.execs[0]
	if !strings.Contains(call.sql, "ON CONFLICT (key) DO UPDATE") {
		t.Errorf("SetItem SQL is not an upsert: %s", call.sql)
	}
	if call.args[0] != "k" || call.args[1] != "v" {
		t.Errorf("SetItem args = %v", call.args)
	}
}

func TestStore_RemoveItemAndMigrate(t *testing.T) {
	t.Parallel()
	db := &mockDB{}
	s := New(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := s.RemoveItem(context.Background(), "k"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(db.execs) != 2 {
		t.Fatalf("expected 2 execs, got %d", len(db.execs))
	}
	if db.execs[0].sql != Schema {
		t.Error("Migrate did not execute Schema")
	}
	if !strings.HasPrefix(db.execs[1].sql, "DELETE FROM kv_items") {
		t.Errorf("RemoveItem SQL = %s", db.execs[1].sql)
	}
}

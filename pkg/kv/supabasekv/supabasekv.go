// Package supabasekv provides a [kv.Backend] that stores items in a Supabase
// (PostgREST) table. The table must expose text columns "key" (primary key)
// and "value":
//
//	create table kv_items (key text primary key, value text not null);
package supabasekv

import (
	"context"
	"errors"
	"fmt"

	supa "github.com/supabase-community/supabase-go"

	"github.com/MrWong99/dungeonmaster/pkg/kv"
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "kv_items"

// Compile-time interface check.
var _ kv.Backend = (*Store)(nil)

// item mirrors one row of the kv table.
type item struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Store is a Supabase-backed [kv.Backend]. PostgREST calls do not accept a
// context, so ctx is only checked for cancellation before each request.
type Store struct {
	client *supa.Client
	table  string
}

// Option configures a [Store].
type Option func(*Store)

// WithTable overrides [DefaultTable].
func WithTable(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.table = name
		}
	}
}

// New connects to the Supabase project at url using key.
func New(url, key string, opts ...Option) (*Store, error) {
	if url == "" || key == "" {
		return nil, errors.New("supabasekv: url and key must not be empty")
	}
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("supabasekv: connect: %w", err)
	}
	s := &Store{client: client, table: DefaultTable}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// GetItem implements [kv.Backend.GetItem].
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var rows []item
	_, err := s.client.From(s.table).Select("key,value", "", false).Eq("key", key).ExecuteTo(&rows)
	if err != nil {
		return "", false, fmt.Errorf("supabasekv: get %q: %w", key, err)
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Value, true, nil
}

// SetItem implements [kv.Backend.SetItem].
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From(s.table).Upsert(item{Key: key, Value: value}, "key", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("supabasekv: set %q: %w", key, err)
	}
	return nil
}

// RemoveItem implements [kv.Backend.RemoveItem].
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From(s.table).Delete("minimal", "").Eq("key", key).Execute()
	if err != nil {
		return fmt.Errorf("supabasekv: remove %q: %w", key, err)
	}
	return nil
}

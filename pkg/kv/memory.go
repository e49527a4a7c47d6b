package kv

import (
	"context"
	"maps"
	"sync"
)

// Compile-time interface check.
var _ Backend = (*MemBackend)(nil)

// MemBackend is a thread-safe, in-memory [Backend].
// The zero value is ready to use.
type MemBackend struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemBackend returns a MemBackend pre-populated with seed. seed may be nil.
func NewMemBackend(seed map[string]string) *MemBackend {
	items := make(map[string]string, len(seed))
	maps.Copy(items, seed)
	return &MemBackend{items: items}
}

// GetItem implements [Backend.GetItem].
func (m *MemBackend) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

// SetItem implements [Backend.SetItem].
func (m *MemBackend) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]string)
	}
	m.items[key] = value
	return nil
}

// RemoveItem implements [Backend.RemoveItem].
func (m *MemBackend) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Keys returns a snapshot of all stored keys in unspecified order.
func (m *MemBackend) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	return keys
}

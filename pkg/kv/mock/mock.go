// Package mock provides a test double for the kv.Backend interface.
//
// Backend stores values in memory like kv.MemBackend but records every call
// and lets tests inject errors per operation.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/dungeonmaster/pkg/kv"
)

var _ kv.Backend = (*Backend)(nil)

// Call records a single invocation.
type Call struct {
	// Op is one of "get", "set", "remove".
	Op    string
	Key   string
	Value string
}

// Backend is a mock implementation of kv.Backend.
type Backend struct {
	mu sync.Mutex

	// Items is the backing map. It may be pre-populated before use.
	Items map[string]string

	// GetErr, SetErr and RemoveErr, when non-nil, are returned by the matching
	// method without touching Items.
	GetErr    error
	SetErr    error
	RemoveErr error

	// Calls records every invocation in order.
	Calls []Call
}

// GetItem implements kv.Backend.
func (b *Backend) GetItem(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Calls = append(b.Calls, Call{Op: "get", Key: key})
	if b.GetErr != nil {
		return "", false, b.GetErr
	}
	v, ok := b.Items[key]
	return v, ok, nil
}

// SetItem implements kv.Backend.
func (b *Backend) SetItem(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Calls = append(b.Calls, Call{Op: "set", Key: key, Value: value})
	if b.SetErr != nil {
		return b.SetErr
	}
	if b.Items == nil {
		b.Items = make(map[string]string)
	}
	b.Items[key] = value
	return nil
}

// RemoveItem implements kv.Backend.
func (b *Backend) RemoveItem(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Calls = append(b.Calls, Call{Op: "remove", Key: key})
	if b.RemoveErr != nil {
		return b.RemoveErr
	}
	delete(b.Items, key)
	return nil
}

// Value returns the stored value for key.
func (b *Backend) Value(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.Items[key]
	return v, ok
}

// SetCalls returns the number of SetItem invocations so far.
func (b *Backend) SetCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.Calls {
		if c.Op == "set" {
			n++
		}
	}
	return n
}

// FailSet sets SetErr under the lock.
func (b *Backend) FailSet(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SetErr = err
}

// Package kv defines the string key-value persistence contract used by every
// Dungeon Master store (context files, player preferences, sessions).
//
// A Backend mirrors the semantics of a browser's localStorage: each key holds
// one opaque string blob, writes replace the previous value, and removing an
// absent key is not an error. Concrete backends live in subpackages
// (filekv, sqlitekv, postgreskv, supabasekv); [MemBackend] is an in-process
// implementation for tests and ephemeral sessions.
//
// All implementations must be safe for concurrent use.
package kv

import (
	"context"
	"errors"
)

// Well-known keys shared by the stores that sit on top of a Backend.
const (
	KeyContextFiles      = "dungeonmaster-context-files"
	KeyPlayerPreferences = "dungeonmaster-player-preferences"
	KeySession           = "dungeonmaster-session"
	KeyCampaigns         = "dungeonmaster-campaigns"
)

// ErrClosed is returned by backends that have been closed.
var ErrClosed = errors.New("kv: backend closed")

// Backend is a namespaced string key-value store.
type Backend interface {
	// GetItem returns the value stored under key. ok is false when the key
	// has never been written or was removed; err is reserved for transport
	// or storage failures.
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key. Removing an absent key returns nil.
	RemoveItem(ctx context.Context, key string) error
}

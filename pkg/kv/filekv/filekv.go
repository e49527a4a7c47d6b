// Package filekv provides a [kv.Backend] that stores each key as a file in a
// local directory. It is the default backend for single-player installs.
package filekv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/MrWong99/dungeonmaster/pkg/kv"
)

// Compile-time interface check.
var _ kv.Backend = (*Store)(nil)

// Store persists values as files named after their (path-escaped) key.
// Thread-safe for concurrent use within one process.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates a Store rooted at dir. The directory is created if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filekv: dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filekv: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

// GetItem implements [kv.Backend.GetItem].
func (s *Store) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("filekv: read %q: %w", key, err)
	}
	return string(data), true, nil
}

// SetItem implements [kv.Backend.SetItem]. The write goes to a temporary file
// that is renamed over the target, so readers never observe a torn value.
func (s *Store) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("filekv: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("filekv: write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filekv: close %q: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("filekv: rename %q: %w", key, err)
	}
	return nil
}

// RemoveItem implements [kv.Backend.RemoveItem].
func (s *Store) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filekv: remove %q: %w", key, err)
	}
	return nil
}

package filekv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/dungeonmaster/pkg/kv/filekv"
)

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := filekv.New(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, ok, err := s.GetItem(ctx, "dungeonmaster-context-files"); ok || err != nil {
		t.Fatalf("GetItem on empty store = ok %v, err %v", ok, err)
	}
	if err := s.SetItem(ctx, "dungeonmaster-context-files", `{"a":1}`); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	v, ok, err := s.GetItem(ctx, "dungeonmaster-context-files")
	if err != nil || !ok || v != `{"a":1}` {
		t.Fatalf("GetItem = %q, %v, %v", v, ok, err)
	}
	if err := s.RemoveItem(ctx, "dungeonmaster-context-files"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if err := s.RemoveItem(ctx, "dungeonmaster-context-files"); err != nil {
		t.Fatalf("RemoveItem twice: %v", err)
	}
}

func TestStore_KeyIsEscaped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	s, err := filekv.New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SetItem(ctx, "../escape", "x"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one file inside dir, got %d", len(entries))
	}
	v, ok, _ := s.GetItem(ctx, "../escape")
	if !ok || v != "x" {
		t.Fatalf("GetItem(../escape) = %q, %v", v, ok)
	}
}

func TestNew_EmptyDir(t *testing.T) {
	t.Parallel()
	if _, err := filekv.New(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

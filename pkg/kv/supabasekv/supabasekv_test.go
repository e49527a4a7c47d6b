package supabasekv_test

import (
	"context"
	"testing"

	"github.com/MrWong99/dungeonmaster/pkg/kv/supabasekv"
)

func TestNew_RequiresCredentials(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, url, key string
	}{
		{name: "no url", key: "anon"},
		{name: "no key", url: "https://example.supabase.co"},
		{name: "neither"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := supabasekv.New(tt.url, tt.key); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestStore_CancelledContext(t *testing.T) {
	t.Parallel()
	s, err := supabasekv.New("https://example.supabase.co", "anon-key", supabasekv.WithTable("dm_kv"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := s.GetItem(ctx, "k"); err == nil {
		t.Error("GetItem: expected context error")
	}
	if err := s.SetItem(ctx, "k", "v"); err == nil {
		t.Error("SetItem: expected context error")
	}
	if err := s.RemoveItem(ctx, "k"); err == nil {
		t.Error("RemoveItem: expected context error")
	}
}

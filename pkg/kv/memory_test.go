package kv_test

import (
	"context"
	"sync"
	"testing"

	"github.com/MrWong99/dungeonmaster/pkg/kv"
)

func TestMemBackend_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := kv.NewMemBackend(nil)

	if _, ok, err := b.GetItem(ctx, "missing"); ok || err != nil {
		t.Fatalf("GetItem(missing) = ok %v, err %v; want false, nil", ok, err)
	}
	if err := b.SetItem(ctx, "k", "v1"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if err := b.SetItem(ctx, "k", "v2"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	v, ok, err := b.GetItem(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("GetItem(k) = %q, %v, %v; want v2, true, nil", v, ok, err)
	}
	if err := b.RemoveItem(ctx, "k"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if err := b.RemoveItem(ctx, "k"); err != nil {
		t.Fatalf("RemoveItem on absent key: %v", err)
	}
	if _, ok, _ := b.GetItem(ctx, "k"); ok {
		t.Fatal("key still present after RemoveItem")
	}
}

func TestMemBackend_ZeroValue(t *testing.T) {
	t.Parallel()
	var b kv.MemBackend
	if err := b.SetItem(context.Background(), "a", "b"); err != nil {
		t.Fatalf("SetItem on zero value: %v", err)
	}
	if got := b.Keys(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("Keys() = %v; want [a]", got)
	}
}

func TestMemBackend_SeedIsCopied(t *testing.T) {
	t.Parallel()
	seed := map[string]string{"x": "1"}
	b := kv.NewMemBackend(seed)
	seed["x"] = "2"
	v, _, _ := b.GetItem(context.Background(), "x")
	if v != "1" {
		t.Fatalf("seed mutation leaked into backend: got %q", v)
	}
}

func TestMemBackend_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := kv.NewMemBackend(nil)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i))
			_ = b.SetItem(ctx, key, key)
			_, _, _ = b.GetItem(ctx, key)
		}()
	}
	wg.Wait()
	if got := len(b.Keys()); got != 16 {
		t.Fatalf("len(Keys()) = %d; want 16", got)
	}
}

package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/dungeonmaster/internal/session"
	"github.com/MrWong99/dungeonmaster/pkg/kv"
	"github.com/MrWong99/dungeonmaster/pkg/kv/mock"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newManager(t *testing.T) (*session.Manager, *mock.Backend, *clock) {
	t.Helper()
	b := &mock.Backend{}
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return session.NewManager(b, session.WithClock(c.now)), b, c
}

func TestManager_SaveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, c := newManager(t)

	saved, err := m.Save(ctx, session.Data{CharacterName: "Thorin", CharacterLevel: 2})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !saved.LastActivity.Equal(c.t) {
		t.Errorf("LastActivity = %v, want %v", saved.LastActivity, c.t)
	}

	got, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.CharacterName != "Thorin" || got.CharacterLevel != 2 {
		t.Fatalf("Load = %+v, want Thorin level 2", got)
	}
}

func TestManager_LoadMissing(t *testing.T) {
	t.Parallel()
	m, _, _ := newManager(t)
	got, err := m.Load(context.Background())
	if err != nil || got != nil {
		t.Fatalf("Load = %+v, %v; want nil, nil", got, err)
	}
}

func TestManager_ExpiredSessionClearsEverything(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, b, c := newManager(t)

	if _, err := m.Save(ctx, session.Data{CharacterName: "Thorin"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, key := range []string{kv.KeyCampaigns, kv.KeyContextFiles, kv.KeyPlayerPreferences} {
		if err := b.SetItem(ctx, key, "{}"); err != nil {
			t.Fatalf("SetItem: %v", err)
		}
	}

	c.t = c.t.Add(29 * 24 * time.Hour)
	if ok, _ := m.Active(ctx); !ok {
		t.Fatal("session expired after 29 days, want active")
	}

	c.t = c.t.Add(2 * 24 * time.Hour)
	got, err := m.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Fatalf("Load = %+v, want nil after expiry", got)
	}
	for _, key := range []string{kv.KeySession, kv.KeyCampaigns, kv.KeyContextFiles, kv.KeyPlayerPreferences} {
		if _, ok := b.Value(key); ok {
			t.Errorf("key %q survived expiry", key)
		}
	}
}

func TestManager_CorruptRecord(t *testing.T) {
	t.Parallel()
	b := &mock.Backend{Items: map[string]string{kv.KeySession: "not json"}}
	m := session.NewManager(b)
	got, err := m.Load(context.Background())
	if err != nil || got != nil {
		t.Fatalf("Load = %+v, %v; want nil, nil", got, err)
	}
}

func TestManager_ClearJoinsErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	b := &mock.Backend{RemoveErr: boom}
	m := session.NewManager(b)

	err := m.Clear(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Clear err = %v, want %v", err, boom)
	}
	removes := 0
	for _, call := range b.Calls {
		if call.Op == "remove" {
			removes++
		}
	}
	if removes != 4 {
		t.Errorf("remove calls = %d, want 4", removes)
	}
}

func TestManager_OnClearRunsOnExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _, c := newManager(t)

	var cleared int
	m.OnClear(func(context.Context) { cleared++ })
	m.OnClear(nil)

	if _, err := m.Save(ctx, session.Data{CharacterName: "Thorin"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := m.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cleared != 0 {
		t.Fatalf("hook ran %d times for an active session", cleared)
	}

	c.t = c.t.Add(31 * 24 * time.Hour)
	if _, err := m.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cleared != 1 {
		t.Errorf("hook ran %d times after expiry, want 1", cleared)
	}
	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if cleared != 2 {
		t.Errorf("hook ran %d times after Clear, want 2", cleared)
	}
}

func TestManager_OnClearRunsWhenRemoveFails(t *testing.T) {
	t.Parallel()
	m := session.NewManager(&mock.Backend{RemoveErr: errors.New("boom")})
	ran := false
	m.OnClear(func(context.Context) { ran = true })
	if err := m.Clear(context.Background()); err == nil {
		t.Fatal("want joined remove error")
	}
	if !ran {
		t.Error("hook skipped after a failed remove")
	}
}

package contextfile_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/dungeonmaster/internal/contextfile"
	"github.com/MrWong99/dungeonmaster/pkg/kv"
	"github.com/MrWong99/dungeonmaster/pkg/kv/mock"
)

// ─── helpers ─────────────────────────────────────────────────────────────────

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newStore(t *testing.T) (*contextfile.Store, *mock.Backend, *fakeClock) {
	t.Helper()
	b := &mock.Backend{}
	c := newClock()
	return contextfile.NewStore(b, contextfile.WithClock(c.Now)), b, c
}

func doc(id string, priority int, tags ...string) contextfile.Document {
	return contextfile.Document{ID: id, Content: "# " + id, Tags: tags, Priority: priority}
}

func persistedIDs(t *testing.T, b *mock.Backend) []string {
	t.Helper()
	raw, ok := b.Value(kv.KeyContextFiles)
	if !ok {
		t.Fatal("nothing persisted")
	}
	var docs []contextfile.Document
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		t.Fatalf("persisted blob is not a document array: %v", err)
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}

// ─── Put / Get / All ─────────────────────────────────────────────────────────

func TestStore_PutGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, b, c := newStore(t)

	if err := s.Put(ctx, doc("quest_log", 8, "quests")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Get("quest_log")
	if !ok {
		t.Fatal("Get: document not found")
	}
	if !got.LastUpdated.Equal(c.Now()) {
		t.Errorf("LastUpdated = %v, want %v", got.LastUpdated, c.Now())
	}
	if got.Filename != "quest_log.md" {
		t.Errorf("Filename = %q, want quest_log.md", got.Filename)
	}
	if diff := cmp.Diff([]string{"quest_log"}, persistedIDs(t, b)); diff != "" {
		t.Errorf("persisted ids mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_PutKeepsExplicitTimestamp(t *testing.T) {
	t.Parallel()
	s, _, _ := newStore(t)
	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	d := doc("notes", 5)
	d.LastUpdated = ts
	if err := s.Put(context.Background(), d); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, _ := s.Get("notes")
	if !got.LastUpdated.Equal(ts) {
		t.Errorf("LastUpdated = %v, want %v", got.LastUpdated, ts)
	}
}

func TestStore_PutLastWriteWins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _ := newStore(t)

	first := doc("notes", 5)
	second := doc("notes", 7)
	second.Content = "replaced"
	_ = s.Put(ctx, first)
	_ = s.Put(ctx, second)

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	got, _ := s.Get("notes")
	if got.Content != "replaced" || got.Priority != 7 {
		t.Errorf("Get = %+v, want the second write", got)
	}
}

func TestStore_PutInvalid(t *testing.T) {
	t.Parallel()
	s, b, _ := newStore(t)
	err := s.Put(context.Background(), contextfile.Document{Content: "no id"})
	if !errors.Is(err, contextfile.ErrInvalidDocument) {
		t.Fatalf("Put without id: err = %v, want ErrInvalidDocument", err)
	}
	if b.SetCalls() != 0 {
		t.Error("invalid document must not be persisted")
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()
	s, _, _ := newStore(t)
	_ = s.Put(context.Background(), doc("a", 1, "combat"))
	got, _ := s.Get("a")
	got.Tags[0] = "mutated"
	again, _ := s.Get("a")
	if again.Tags[0] != "combat" {
		t.Error("mutating a returned document leaked into the store")
	}
}

func TestStore_AllSortedByID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _ := newStore(t)
	for _, id := range []string{"zeta", "alpha", "mid"} {
		_ = s.Put(ctx, doc(id, 1))
	}
	var ids []string
	for _, d := range s.All() {
		ids = append(ids, d.ID)
	}
	if diff := cmp.Diff([]string{"alpha", "mid", "zeta"}, ids); diff != "" {
		t.Errorf("All() order mismatch (-want +got):\n%s", diff)
	}
}

// ─── Delete / Append ─────────────────────────────────────────────────────────

func TestStore_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, b, _ := newStore(t)
	_ = s.Put(ctx, doc("a", 1))
	_ = s.Put(ctx, doc("b", 1))

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get("a"); ok {
		t.Error("document a still present")
	}
	if diff := cmp.Diff([]string{"b"}, persistedIDs(t, b)); diff != "" {
		t.Errorf("persisted ids mismatch (-want +got):\n%s", diff)
	}
	if err := s.Delete(ctx, "absent"); err != nil {
		t.Errorf("Delete(absent) = %v, want nil", err)
	}
}

func TestStore_Append(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, c := newStore(t)
	_ = s.Put(ctx, doc("character_progression", 9))
	before, _ := s.Get("character_progression")

	c.Advance(time.Minute)
	if err := s.Append(ctx, "character_progression", "\nmore"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	after, _ := s.Get("character_progression")
	if after.Content != before.Content+"\nmore" {
		t.Errorf("Content = %q, want prior content plus appended text", after.Content)
	}
	if !after.LastUpdated.After(before.LastUpdated) {
		t.Error("LastUpdated was not refreshed")
	}
}

func TestStore_AppendAbsentIsNoop(t *testing.T) {
	t.Parallel()
	s, b, _ := newStore(t)
	if err := s.Append(context.Background(), "missing", "text"); err != nil {
		t.Fatalf("Append(missing) = %v", err)
	}
	if s.Len() != 0 || b.SetCalls() != 0 {
		t.Error("Append on an absent id must not create or persist anything")
	}
}

// ─── ReplaceAll ──────────────────────────────────────────────────────────────

func TestStore_ReplaceAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _ := newStore(t)
	_ = s.Put(ctx, doc("old", 1))

	err := s.ReplaceAll(ctx, []contextfile.Document{doc("a", 1), doc("b", 2), doc("a", 3)})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if _, ok := s.Get("old"); ok {
		t.Error("ReplaceAll kept a prior document")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if a, _ := s.Get("a"); a.Priority != 3 {
		t.Errorf("duplicate id: priority = %d, want the later record (3)", a.Priority)
	}
}

func TestStore_ReplaceAllInvalidLeavesStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _ := newStore(t)
	_ = s.Put(ctx, doc("keep", 1))

	err := s.ReplaceAll(ctx, []contextfile.Document{doc("a", 1), {Content: "no id"}})
	if !errors.Is(err, contextfile.ErrInvalidDocument) {
		t.Fatalf("err = %v, want ErrInvalidDocument", err)
	}
	if _, ok := s.Get("keep"); !ok || s.Len() != 1 {
		t.Error("failed ReplaceAll modified the store")
	}
}

func TestStore_WriteFailureKeepsState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, b, _ := newStore(t)
	_ = s.Put(ctx, doc("a", 1))

	b.FailSet(errors.New("disk full"))
	if err := s.Put(ctx, doc("b", 1)); err == nil {
		t.Fatal("Put: expected persistence error")
	}
	if err := s.Append(ctx, "a", "x"); err == nil {
		t.Fatal("Append: expected persistence error")
	}
	if _, ok := s.Get("b"); ok {
		t.Error("document visible although it was never persisted")
	}
	if got, _ := s.Get("a"); strings.HasSuffix(got.Content, "x") {
		t.Error("append visible although it was never persisted")
	}
}

// ─── SaveFile / CreateFile ───────────────────────────────────────────────────

func TestStore_SaveFile(t *testing.T) {
	t.Parallel()
	s, _, _ := newStore(t)
	modified := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := s.SaveFile(context.Background(), "lore1", "Ancient  Dragon Lore", "# Dragons", "lore", modified); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	got, _ := s.Get("lore1")
	want := contextfile.Document{
		ID:          "lore1",
		Filename:    "ancient_dragon_lore.md",
		Content:     "# Dragons",
		Tags:        []string{"lore"},
		LastUpdated: modified,
		Priority:    contextfile.DefaultPriority,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SaveFile document mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_CreateFile(t *testing.T) {
	t.Parallel()
	s, _, c := newStore(t)
	if err := s.CreateFile(context.Background(), "world_overview", "world_overview.md", "# World"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	got, _ := s.Get("world_overview")
	want := contextfile.Document{
		ID:          "world_overview",
		Filename:    "world_overview.md",
		Content:     "# World",
		Tags:        []string{"generated"},
		LastUpdated: c.Now(),
		Priority:    contextfile.DefaultPriority,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CreateFile document mismatch (-want +got):\n%s", diff)
	}
}

// ─── Load / Save / Clear ─────────────────────────────────────────────────────

func TestStore_LoadRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backend := kv.NewMemBackend(nil)
	s := contextfile.NewStore(backend)
	_ = s.Put(ctx, doc("a", 1, "combat"))
	_ = s.Put(ctx, doc("b", 2, "spells"))

	reloaded := contextfile.NewStore(backend)
	reloaded.Load(ctx)
	if diff := cmp.Diff(s.All(), reloaded.All()); diff != "" {
		t.Errorf("reloaded store mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_LoadTolerant(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		backend kv.Backend
		wantLen int
	}{
		{name: "missing key", backend: kv.NewMemBackend(nil), wantLen: 0},
		{name: "corrupt blob", backend: kv.NewMemBackend(map[string]string{kv.KeyContextFiles: "{not json"}), wantLen: 0},
		{name: "wrong shape", backend: kv.NewMemBackend(map[string]string{kv.KeyContextFiles: `{"a":1}`}), wantLen: 0},
		{name: "read error", backend: &mock.Backend{GetErr: errors.New("io")}, wantLen: 0},
		{
			name: "bad timestamp",
			backend: kv.NewMemBackend(map[string]string{
				kv.KeyContextFiles: `[{"id":"a","content":"x","tags":["t"],"lastUpdated":"yesterday","priority":3}]`,
			}),
			wantLen: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newClock()
			s := contextfile.NewStore(tt.backend, contextfile.WithClock(c.Now))
			_ = s.Put(context.Background(), doc("stale", 1))
			s.Load(context.Background())
			if s.Len() != tt.wantLen {
				t.Fatalf("Len() after Load = %d, want %d", s.Len(), tt.wantLen)
			}
			if tt.wantLen == 1 {
				got, _ := s.Get("a")
				if !got.LastUpdated.Equal(c.Now()) {
					t.Errorf("unparsable lastUpdated = %v, want now (%v)", got.LastUpdated, c.Now())
				}
			}
		})
	}
}

func TestStore_Clear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, b, _ := newStore(t)
	_ = s.Put(ctx, doc("a", 1))
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Len() != 0 {
		t.Error("store not empty after Clear")
	}
	if _, ok := b.Value(kv.KeyContextFiles); ok {
		t.Error("backing key still present after Clear")
	}
}

func TestStore_WithKey(t *testing.T) {
	t.Parallel()
	b := &mock.Backend{}
	s := contextfile.NewStore(b, contextfile.WithKey("campaign-42"))
	_ = s.Put(context.Background(), doc("a", 1))
	if _, ok := b.Value("campaign-42"); !ok {
		t.Error("custom key not used")
	}
}

func TestStore_ConcurrentAppend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := contextfile.NewStore(nil)
	_ = s.Put(ctx, contextfile.Document{ID: "log"})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Append(ctx, "log", "x")
		}()
	}
	wg.Wait()
	got, _ := s.Get("log")
	if len(got.Content) != 20 {
		t.Errorf("len(Content) = %d, want 20", len(got.Content))
	}
}

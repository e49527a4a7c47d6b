package narrator_test

import (
	"testing"
	"time"

	"github.com/MrWong99/dungeonmaster/internal/narrator"
)

func TestCleanResponse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims", "\n  You wake.  \n", "You wake."},
		{"asterisk bullets", "Options:\n* run\n*   hide", "Options:\n- run\n- hide"},
		{"keeps bold", "**Roll for initiative!**", "**Roll for initiative!**"},
		{"collapses blank runs", "One.\n\n\n\nTwo.", "One.\n\nTwo."},
		{"keeps single blank line", "One.\n\nTwo.", "One.\n\nTwo."},
		{"empty", "   ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := narrator.CleanResponse(tc.in); got != tc.want {
				t.Fatalf("CleanResponse(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestUsageTracker_RollsOverDaily(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 6, 1, 23, 59, 0, 0, time.Local)
	u := narrator.NewUsageTracker(func() time.Time { return now })

	u.RecordSuccess("abcd", "abcdefgh")
	u.RecordError()
	got := u.Snapshot()
	if got.Requests != 1 || got.Tokens != 3 || got.Errors != 1 || got.Date != "2025-06-01" {
		t.Fatalf("day one = %+v", got)
	}

	now = now.Add(2 * time.Minute)
	if got := u.Snapshot(); got.Requests != 0 || got.Tokens != 0 || got.Errors != 0 || got.Date != "2025-06-02" {
		t.Fatalf("day two = %+v, want fresh counters", got)
	}
}

func TestPromptLog_EvictsOldest(t *testing.T) {
	t.Parallel()
	l := narrator.NewPromptLog(2)
	l.Add(narrator.PromptRecord{MessageID: 1, Prompt: "a"})
	l.Add(narrator.PromptRecord{MessageID: 2, Prompt: "b"})
	l.Add(narrator.PromptRecord{MessageID: 2, Prompt: "b2"})
	l.Add(narrator.PromptRecord{MessageID: 3, Prompt: "c"})

	if _, ok := l.Get(1); ok {
		t.Fatal("record 1 should have been evicted")
	}
	if rec, ok := l.Get(2); !ok || rec.Prompt != "b2" {
		t.Fatalf("record 2 = %+v, %v", rec, ok)
	}
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
	if narrator.NewPromptLog(0) == nil {
		t.Fatal("default size log is nil")
	}
}

package contextfile_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/MrWong99/dungeonmaster/internal/contextfile"
)

func TestStore_Suggest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _ := newStore(t)
	for _, id := range []string{"character_sheet", "quest_log", "relationships"} {
		if err := s.Put(ctx, doc(id, 5)); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		query  string
		want   string
		wantOK bool
	}{
		{"character-sheet", "character_sheet", true},
		{"Quest Log", "quest_log", true},
		{"relationship", "relationships", true},
		{"quest_log", "", false},
		{"zzz", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := s.Suggest(tc.query)
		if ok != tc.wantOK || (ok && got != tc.want) {
			t.Errorf("Suggest(%q) = %q, %v; want %q, %v", tc.query, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestStore_ExportFileHint(t *testing.T) {
	t.Parallel()
	s, _, _ := newStore(t)
	_ = s.Put(context.Background(), doc("spell_book", 8))

	_, err := s.ExportFile(io.Discard, "spellbook")
	if !errors.Is(err, contextfile.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), `did you mean "spell_book"`) {
		t.Errorf("err = %v, want a hint", err)
	}
}

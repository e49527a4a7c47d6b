package contextfile_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/dungeonmaster/internal/contextfile"
)

func TestStore_InitializeDefaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, b, _ := newStore(t)
	_ = s.Put(ctx, doc("custom_notes", 2))

	if err := s.InitializeDefaults(ctx, "Lyra", "Rogue", "Criminal"); err != nil {
		t.Fatalf("InitializeDefaults: %v", err)
	}

	want := map[string]struct {
		priority int
		tags     []string
	}{
		"character_sheet":       {10, []string{"character", "stats", "abilities", "core"}},
		"character_progression": {9, []string{"progression", "experience", "levels", "growth"}},
		"spell_book":            {8, []string{"spells", "magic", "abilities", "slots"}},
		"combat_log":            {7, []string{"combat", "encounters", "tactics", "enemies"}},
		"relationships":         {6, []string{"npcs", "relationships", "social", "reputation"}},
		"quest_log":             {8, []string{"quests", "objectives", "goals", "progress"}},
	}
	for id, w := range want {
		d, ok := s.Get(id)
		if !ok {
			t.Errorf("%s: missing", id)
			continue
		}
		if d.Priority != w.priority {
			t.Errorf("%s: priority = %d, want %d", id, d.Priority, w.priority)
		}
		if diff := cmp.Diff(w.tags, d.Tags); diff != "" {
			t.Errorf("%s: tags mismatch (-want +got):\n%s", id, diff)
		}
		if d.Content == "" {
			t.Errorf("%s: empty starter content", id)
		}
	}
	if _, ok := s.Get("custom_notes"); !ok {
		t.Error("InitializeDefaults dropped an unrelated document")
	}
	if b.SetCalls() != 2 {
		t.Errorf("SetItem calls = %d, want 2 (one Put, one commit for all defaults)", b.SetCalls())
	}

	sheet, _ := s.Get(contextfile.CharacterSheetID)
	facts := contextfile.ExtractCharacterFacts(sheet.Content)
	wantFacts := contextfile.CharacterFacts{Name: "Lyra", Class: "Rogue", Level: 1, Background: "Criminal"}
	if facts != wantFacts {
		t.Errorf("facts from generated sheet = %+v, want %+v", facts, wantFacts)
	}
}

func TestStore_InitializeDefaultsFillsClassAndBackground(t *testing.T) {
	t.Parallel()
	s, _, _ := newStore(t)
	_ = s.InitializeDefaults(context.Background(), "Ash", "", "")
	sheet, _ := s.Get(contextfile.CharacterSheetID)
	facts := contextfile.ExtractCharacterFacts(sheet.Content)
	if facts.Class != contextfile.DefaultClass || facts.Background != contextfile.DefaultBackground {
		t.Errorf("facts = %+v, want default class and background", facts)
	}
}

func TestStore_UpgradeCharacterSheetFormat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _ := newStore(t)
	legacy := contextfile.Document{
		ID:      contextfile.CharacterSheetID,
		Content: "# Grimm - Character Sheet\n**Class**: Paladin\n**Level**: 4\n",
		Tags:    []string{"character"},
	}
	_ = s.Put(ctx, legacy)

	if err := s.UpgradeCharacterSheetFormat(ctx, ""); err != nil {
		t.Fatalf("UpgradeCharacterSheetFormat: %v", err)
	}
	got, _ := s.Get(contextfile.CharacterSheetID)
	for _, want := range []string{"# Grimm - Character Sheet", "**Class**: Paladin", "**Background**: Folk Hero", "## Ability Scores"} {
		if !strings.Contains(got.Content, want) {
			t.Errorf("upgraded sheet missing %q", want)
		}
	}
	if diff := cmp.Diff(legacy.Tags, got.Tags); diff != "" {
		t.Errorf("upgrade changed tags (-want +got):\n%s", diff)
	}

	if err := s.UpgradeCharacterSheetFormat(ctx, "absent"); err != nil {
		t.Errorf("upgrade of absent document = %v, want nil", err)
	}
}

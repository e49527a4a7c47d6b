package progression_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MrWong99/dungeonmaster/internal/classify"
	"github.com/MrWong99/dungeonmaster/internal/progression"
)

func TestDetect(t *testing.T) {
	t.Parallel()
	c := classify.Default()
	tests := []struct {
		name      string
		action    string
		narrative string
		want      []progression.Event
	}{
		{
			name:      "combat victory",
			action:    "I attack the goblin",
			narrative: "Victory! The goblin crumples at your feet.",
			want: []progression.Event{
				progression.CombatVictory{Enemy: "goblin", XP: 50, Tactics: "attack"},
			},
		},
		{
			name:      "combat without victory",
			action:    "I attack the goblin",
			narrative: "The goblin dodges.",
			want:      nil,
		},
		{
			name:      "spell cast in combat",
			action:    "I cast fireball",
			narrative: "A bandit burns. Victory is yours.",
			want: []progression.Event{
				progression.CombatVictory{Enemy: "bandit", XP: 50, Tactics: "cast, cast"},
				progression.SpellCast{SpellName: "fire", Level: 1, Target: "enemy", Result: "success"},
			},
		},
		{
			name:      "social with npc",
			action:    "I persuade Mira to join me",
			narrative: "Mira smiles and nods. She will travel with you.",
			want: []progression.Event{
				progression.SocialInteraction{NPC: "mira", Type: "persuade", Outcome: "Mira smiles and nods."},
			},
		},
		{
			name:      "social without npc",
			action:    "I talk to myself",
			narrative: "Silence.",
			want:      nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := progression.Detect(c.Classify(tt.action), tt.narrative)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Detect mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

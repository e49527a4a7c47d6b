package progression

import (
	"slices"
	"strings"

	"github.com/MrWong99/dungeonmaster/internal/classify"
)

// Default event payload values used by [Detect].
const (
	VictoryXP     = 50
	DefaultTarget = "enemy"
	DefaultResult = "success"
)

// Detect derives journal events from a classified player action and the
// narrative it produced:
//
//   - a combat action whose narrative mentions "victory" yields a
//     [CombatVictory] against the enemy named in the narrative;
//   - a detected spell entity yields a [SpellCast] of the first spell;
//   - a social action naming an NPC yields a [SocialInteraction].
//
// The victory check ignores case.
func Detect(ext classify.Extraction, narrative string) []Event {
	var events []Event
	if ext.ActionType == classify.ActionCombat && strings.Contains(strings.ToLower(narrative), "victory") {
		events = append(events, CombatVictory{
			Enemy:   EnemyFromNarrative(narrative),
			XP:      VictoryXP,
			Tactics: strings.Join(ext.Keywords, ", "),
		})
	}
	if spells := ext.EntitiesOf(classify.EntitySpell); len(spells) > 0 {
		events = append(events, SpellCast{
			SpellName: spells[0],
			Level:     1,
			Target:    DefaultTarget,
			Result:    DefaultResult,
		})
	}
	if npcs := ext.EntitiesOf(classify.EntityNPC); ext.ActionType == classify.ActionSocial && len(npcs) > 0 {
		events = append(events, SocialInteraction{
			NPC:     npcs[0],
			Type:    interactionType(ext.Keywords),
			Outcome: summarize(narrative, maxOutcomeRunes),
		})
	}
	return events
}

const maxOutcomeRunes = 160

// interactionType is the first social keyword, or "conversation".
func interactionType(keywords []string) string {
	social := classify.DefaultVocabulary().Social
	for _, k := range keywords {
		if slices.Contains(social, k) {
			return k
		}
	}
	return "conversation"
}

// summarize returns the first sentence of text, cut to max runes.
func summarize(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		text = text[:i+1]
	}
	if r := []rune(text); len(r) > max {
		text = strings.TrimSpace(string(r[:max])) + "..."
	}
	if text == "" {
		return "unknown"
	}
	return text
}

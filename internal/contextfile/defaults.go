package contextfile

import (
	"context"
	"fmt"
	"time"
)

// Default character values used when the caller leaves a field empty.
const (
	DefaultClass      = "Fighter"
	DefaultBackground = "Folk Hero"
)

// InitializeDefaults adds the six canonical documents for a new character:
// character_sheet, character_progression, spell_book, combat_log,
// relationships and quest_log. Existing documents with the same ids are
// replaced; other documents are kept.
func (s *Store) InitializeDefaults(ctx context.Context, name, class, background string) error {
	if class == "" {
		class = DefaultClass
	}
	if background == "" {
		background = DefaultBackground
	}
	return s.mutate(ctx, func(next map[string]Document, now time.Time) {
		for _, d := range DefaultDocuments(name, class, background, now) {
			next[d.ID] = d
		}
	})
}

// UpgradeCharacterSheetFormat regenerates document id (character_sheet when
// empty) in the current sheet layout, keeping the parsed name, class and
// background. It is a no-op when the document is absent.
func (s *Store) UpgradeCharacterSheetFormat(ctx context.Context, id string) error {
	if id == "" {
		id = CharacterSheetID
	}
	return s.mutateIfPresent(ctx, id, func(doc *Document, now time.Time) {
		facts := ExtractCharacterFacts(doc.Content)
		name := sheetName(doc.Content)
		if name == "" {
			name = facts.Name
		}
		if name == "" {
			name = "Unknown"
		}
		facts = facts.Fallback(CharacterFacts{Class: DefaultClass, Background: DefaultBackground})
		doc.Content = characterSheetMarkdown(name, facts.Class, facts.Background, now)
		doc.LastUpdated = now
	})
}

// DefaultDocuments builds the canonical starter documents stamped with now.
func DefaultDocuments(name, class, background string, now time.Time) []Document {
	return []Document{
		{
			ID:          CharacterSheetID,
			Filename:    "character_sheet.md",
			Content:     characterSheetMarkdown(name, class, background, now),
			Tags:        []string{"character", "stats", "abilities", "core"},
			LastUpdated: now,
			Priority:    10,
		},
		{
			ID:          CharacterProgressionID,
			Filename:    "character_progression.md",
			Content:     progressionMarkdown(now),
			Tags:        []string{"progression", "experience", "levels", "growth"},
			LastUpdated: now,
			Priority:    9,
		},
		{
			ID:          SpellBookID,
			Filename:    "spell_book.md",
			Content:     spellBookMarkdown(now),
			Tags:        []string{"spells", "magic", "abilities", "slots"},
			LastUpdated: now,
			Priority:    8,
		},
		{
			ID:          CombatLogID,
			Filename:    "combat_log.md",
			Content:     "# Combat History\n\n*No combat encounters yet.*",
			Tags:        []string{"combat", "encounters", "tactics", "enemies"},
			LastUpdated: now,
			Priority:    7,
		},
		{
			ID:          RelationshipsID,
			Filename:    "relationships.md",
			Content:     "# NPC Relationships\n\n*No significant relationships yet.*",
			Tags:        []string{"npcs", "relationships", "social", "reputation"},
			LastUpdated: now,
			Priority:    6,
		},
		{
			ID:          QuestLogID,
			Filename:    "quest_log.md",
			Content:     "# Active Quests\n\n*No active quests.*",
			Tags:        []string{"quests", "objectives", "goals", "progress"},
			LastUpdated: now,
			Priority:    8,
		},
	}
}

func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func characterSheetMarkdown(name, class, background string, now time.Time) string {
	return fmt.Sprintf(`# %[1]s - Character Sheet

## Basic Information
- **Name**: %[1]s
- **Race**: Human
- **Class**: %[2]s
- **Level**: 1
- **Background**: %[3]s

## Ability Scores
- **Strength**: 12 (+1)
- **Dexterity**: 16 (+3)
- **Constitution**: 14 (+2)
- **Intelligence**: 13 (+1)
- **Wisdom**: 12 (+1)
- **Charisma**: 10 (+0)

## Skills & Proficiencies
- **Proficient Skills**: Stealth, Sleight of Hand, Investigation, Perception
- **Languages**: Common, Thieves' Cant
- **Tools**: Thieves' Tools, Forgery Kit

## Current Status
- **Hit Points**: 10/10
- **Armor Class**: 13 (Leather Armor + Dex)
- **Speed**: 30 feet

## Equipment
- Shortsword
- Shortbow with 20 arrows
- Leather armor
- Thieves' tools
- Backpack with basic supplies

*Last Updated: %[4]s*`, name, class, background, stamp(now))
}

func progressionMarkdown(now time.Time) string {
	return fmt.Sprintf(`# Character Progression & Growth

## Experience & Leveling
- **Current Level:** 1
- **Current XP:** 0/300
- **Next Level:** 2

## Milestone Achievements
*No achievements yet - will be updated as character progresses.*

## Skills Development
*Character skills will be tracked here as they improve.*

## Story Progression
*Key story moments and character development will be recorded here.*

*Last Updated: %s*`, stamp(now))
}

func spellBookMarkdown(now time.Time) string {
	return fmt.Sprintf(`# Spell Book & Abilities

## Known Spells
*No spells known yet - will be updated as character learns magic.*

## Spell Slots
*No spell slots available - will be updated when character gains spellcasting.*

## Special Abilities
### Sneak Attack
- **Damage**: 1d6 (Level 1)
- **Conditions**: Advantage on attack or ally within 5 feet of target

### Thieves' Cant
- Secret language known by rogues and criminals

*Last Updated: %s*`, stamp(now))
}

// Package contextfile holds the campaign's context documents ("context
// files"): the character sheet, the progression journal, the spell book and
// the combat, relationship and quest logs, plus anything the player imports
// or writes by hand.
//
// Documents are plain markdown. The [Store] keeps them keyed by id, tags them
// for relevance selection and flushes the whole collection to a [kv.Backend]
// after every mutation.
//
// Character facts (name, class, level, background) are derived from the
// character sheet through [ExtractCharacterFacts]; no other package parses
// the sheet itself.
//
// All store operations are safe for concurrent use.
package contextfile

import (
	"slices"
	"time"
)

// Well-known document ids.
const (
	CharacterSheetID       = "character_sheet"
	CharacterProgressionID = "character_progression"
	SpellBookID            = "spell_book"
	CombatLogID            = "combat_log"
	RelationshipsID        = "relationships"
	QuestLogID             = "quest_log"
	WorldOverviewID        = "world_overview"
	CampaignNotesID        = "campaign_notes"
	PlayerPreferencesID    = "player_preferences"
)

// DefaultPriority is assigned to user-saved and generated documents.
const DefaultPriority = 5

// Document is a single context file.
type Document struct {
	// ID is the stable key. At most one document per ID exists in a store.
	ID string `json:"id" yaml:"id"`

	// Filename is a display name, usually "<id>.md".
	Filename string `json:"filename" yaml:"filename"`

	// Content is the markdown body.
	Content string `json:"content" yaml:"content"`

	// Tags are category labels used by relevance selection.
	Tags []string `json:"tags" yaml:"tags"`

	// LastUpdated is refreshed on every content mutation.
	LastUpdated time.Time `json:"lastUpdated" yaml:"last_updated,omitempty"`

	// Priority ranks the document during selection; higher wins.
	Priority int `json:"priority" yaml:"priority"`
}

// HasAnyTag reports whether d carries at least one of tags.
func (d Document) HasAnyTag(tags ...string) bool {
	for _, t := range tags {
		if slices.Contains(d.Tags, t) {
			return true
		}
	}
	return false
}

// clone returns a copy of d that shares no memory with the original.
func (d Document) clone() Document {
	d.Tags = slices.Clone(d.Tags)
	return d
}

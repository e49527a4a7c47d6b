// Package relevance picks the bounded, priority-ranked set of context
// documents attached to a single narration prompt.
package relevance

import (
	"cmp"
	"slices"
	"strings"

	"github.com/MrWong99/dungeonmaster/internal/classify"
	"github.com/MrWong99/dungeonmaster/internal/contextfile"
)

// DefaultLimit is the maximum number of documents returned by [Selector.Select].
const DefaultLimit = 5

// Source is the read side of a document store. Documents must be returned in
// a stable order so that equal priorities rank deterministically.
// *contextfile.Store satisfies Source.
type Source interface {
	Get(id string) (contextfile.Document, bool)
	All() []contextfile.Document
}

var _ Source = (*contextfile.Store)(nil)

// Rules maps classifier output to the tags that make a document relevant.
type Rules struct {
	// ActionTags lists the tags pulled in for each action type.
	ActionTags map[classify.ActionType][]string `yaml:"action_tags"`

	// EntityTags lists the tags pulled in for each entity kind.
	EntityTags map[string][]string `yaml:"entity_tags"`
}

// DefaultRules returns the built-in tag mapping.
func DefaultRules() Rules {
	return Rules{
		ActionTags: map[classify.ActionType][]string{
			classify.ActionCombat:      {"combat", "spells", "abilities"},
			classify.ActionMagic:       {"spells", "magic", "abilities"},
			classify.ActionSocial:      {"relationships", "npcs", "social"},
			classify.ActionExploration: {"quest_log", "exploration"},
		},
		EntityTags: map[string][]string{
			classify.EntitySpell: {"spells", "magic"},
			classify.EntityNPC:   {"relationships", "npcs"},
		},
	}
}

// Selector ranks documents for an [classify.Extraction].
type Selector struct {
	rules Rules
	limit int
}

// Option configures a [Selector].
type Option func(*Selector)

// WithLimit overrides [DefaultLimit]. Values below 1 are ignored.
func WithLimit(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithRules replaces [DefaultRules].
func WithRules(r Rules) Option {
	return func(s *Selector) {
		s.rules = r
	}
}

// New creates a Selector.
func New(opts ...Option) *Selector {
	s := &Selector{rules: DefaultRules(), limit: DefaultLimit}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Limit returns the configured maximum selection size.
func (s *Selector) Limit() int { return s.limit }

// Select returns at most Limit documents from src relevant to ext.
//
// The character sheet always comes first when present. Documents matched by
// the action-type rule are added next, then those matched by each detected
// entity, each document at most once. The rest are sorted by descending
// priority (stable, so insertion order breaks ties) before truncation.
func (s *Selector) Select(ext classify.Extraction, src Source) []contextfile.Document {
	var head []contextfile.Document
	if sheet, ok := src.Get(contextfile.CharacterSheetID); ok {
		head = append(head, sheet)
	}

	all := src.All()
	seen := map[string]struct{}{contextfile.CharacterSheetID: {}}
	var ranked []contextfile.Document
	add := func(tags []string) {
		if len(tags) == 0 {
			return
		}
		for _, d := range all {
			if _, dup := seen[d.ID]; dup || !d.HasAnyTag(tags...) {
				continue
			}
			seen[d.ID] = struct{}{}
			ranked = append(ranked, d)
		}
	}

	add(s.rules.ActionTags[ext.ActionType])
	for _, ent := range ext.Entities {
		add(s.rules.EntityTags[entityKind(ent)])
	}

	slices.SortStableFunc(ranked, func(a, b contextfile.Document) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	out := append(head, ranked...)
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	return out
}

func entityKind(ent string) string {
	kind, _, ok := strings.Cut(ent, ":")
	if !ok {
		return ""
	}
	return kind
}

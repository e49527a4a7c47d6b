// Package classify turns free-text player input into an [Extraction]:
// recognised trigger keywords, named entities (spells, NPCs) and one coarse
// [ActionType] used to pick supporting context documents.
//
// Classification is a pure function of the input and the [Vocabulary];
// a [Classifier] holds no mutable state and is safe for concurrent use.
package classify

import (
	"slices"
	"strings"
)

// ActionType is the coarse category of a player's intent.
type ActionType string

const (
	ActionCombat      ActionType = "combat"
	ActionSocial      ActionType = "social"
	ActionExploration ActionType = "exploration"
	ActionMagic       ActionType = "magic"
	ActionGeneral     ActionType = "general"
)

// IsValid reports whether t is a recognised action type.
func (t ActionType) IsValid() bool {
	switch t {
	case ActionCombat, ActionSocial, ActionExploration, ActionMagic, ActionGeneral:
		return true
	}
	return false
}

// Entity kinds used as the prefix of [Extraction.Entities] values.
const (
	EntitySpell = "spell"
	EntityNPC   = "npc"
)

// Extraction is the classifier output for one input.
type Extraction struct {
	// Keywords lists every vocabulary hit in order of appearance. A token in
	// several keyword sets appears once per set.
	Keywords []string `json:"keywords"`

	// Entities holds "kind:value" references such as "spell:fireball".
	Entities []string `json:"entities"`

	// ActionType is the resolved category.
	ActionType ActionType `json:"actionType"`
}

// EntitiesOf returns the values of all entities of the given kind, in order.
func (e Extraction) EntitiesOf(kind string) []string {
	var out []string
	prefix := kind + ":"
	for _, ent := range e.Entities {
		if v, ok := strings.CutPrefix(ent, prefix); ok {
			out = append(out, v)
		}
	}
	return out
}

// HasEntityKind reports whether at least one entity of kind was detected.
func (e Extraction) HasEntityKind(kind string) bool {
	prefix := kind + ":"
	return slices.ContainsFunc(e.Entities, func(ent string) bool {
		return strings.HasPrefix(ent, prefix)
	})
}

// Classifier classifies input against a fixed [Vocabulary].
type Classifier struct {
	vocab Vocabulary
}

// New returns a Classifier for vocab. The vocabulary is lower-cased and
// copied; later changes to the argument have no effect.
func New(vocab Vocabulary) *Classifier {
	return &Classifier{vocab: vocab.normalised()}
}

// Default returns a Classifier using [DefaultVocabulary].
func Default() *Classifier {
	return New(DefaultVocabulary())
}

// Vocabulary returns a copy of the classifier's vocabulary.
func (c *Classifier) Vocabulary() Vocabulary {
	return c.vocab.clone()
}

// Classify extracts keywords, entities and the action type from input.
// It never fails; empty input yields an empty extraction of type general.
func (c *Classifier) Classify(input string) Extraction {
	lower := strings.ToLower(input)
	ext := Extraction{
		Keywords:   []string{},
		Entities:   []string{},
		ActionType: ActionGeneral,
	}

	for _, token := range strings.Fields(lower) {
		for _, set := range c.vocab.ordered() {
			if slices.Contains(set.words, token) {
				ext.Keywords = append(ext.Keywords, token)
			}
		}
	}

	for _, spell := range c.vocab.Spells {
		if strings.Contains(lower, spell) {
			ext.Entities = append(ext.Entities, EntitySpell+":"+spell)
		}
	}
	for _, npc := range c.vocab.NPCs {
		if strings.Contains(lower, npc) {
			ext.Entities = append(ext.Entities, EntityNPC+":"+npc)
		}
	}

	for _, set := range c.vocab.ordered() {
		if containsAny(lower, set.words) {
			ext.ActionType = set.action
			break
		}
	}
	return ext
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}

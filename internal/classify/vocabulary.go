package classify

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Vocabulary is the word lists the classifier matches against. Keyword sets
// are matched per whitespace token; Spells and NPCs are matched as
// substrings of the whole input.
type Vocabulary struct {
	Combat      []string `yaml:"combat" json:"combat"`
	Social      []string `yaml:"social" json:"social"`
	Exploration []string `yaml:"exploration" json:"exploration"`
	Magic       []string `yaml:"magic" json:"magic"`
	Spells      []string `yaml:"spells" json:"spells"`
	NPCs        []string `yaml:"npcs" json:"npcs"`
}

// DefaultVocabulary returns the built-in word lists.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Combat:      []string{"attack", "fight", "spell", "weapon", "damage", "hit", "cast", "shoot"},
		Social:      []string{"talk", "persuade", "intimidate", "deceive", "charm", "negotiate"},
		Exploration: []string{"search", "investigate", "explore", "examine", "look", "move"},
		Magic:       []string{"spell", "magic", "cast", "enchant", "ritual", "arcane"},
		Spells:      []string{"fire", "healing", "magic missile", "fireball", "cure wounds"},
		NPCs:        []string{"henrik", "mira", "guard", "merchant", "bartender"},
	}
}

// Merge returns v with every empty list replaced by the one from base.
func (v Vocabulary) Merge(base Vocabulary) Vocabulary {
	pick := func(a, b []string) []string {
		if len(a) == 0 {
			return slices.Clone(b)
		}
		return slices.Clone(a)
	}
	return Vocabulary{
		Combat:      pick(v.Combat, base.Combat),
		Social:      pick(v.Social, base.Social),
		Exploration: pick(v.Exploration, base.Exploration),
		Magic:       pick(v.Magic, base.Magic),
		Spells:      pick(v.Spells, base.Spells),
		NPCs:        pick(v.NPCs, base.NPCs),
	}
}

// Validate rejects blank words and keyword-set entries containing whitespace
// (they could never equal a single token).
func (v Vocabulary) Validate() error {
	var errs []error
	check := func(name string, words []string, tokenised bool) {
		for i, w := range words {
			switch {
			case strings.TrimSpace(w) == "":
				errs = append(errs, fmt.Errorf("%s[%d]: must not be empty", name, i))
			case tokenised && strings.ContainsAny(w, " \t\r\n"):
				errs = append(errs, fmt.Errorf("%s[%d]: %q must be a single word", name, i, w))
			}
		}
	}
	check("combat", v.Combat, true)
	check("social", v.Social, true)
	check("exploration", v.Exploration, true)
	check("magic", v.Magic, true)
	check("spells", v.Spells, false)
	check("npcs", v.NPCs, false)
	return errors.Join(errs...)
}

type keywordSet struct {
	action ActionType
	words  []string
}

// ordered returns the keyword sets in action-type priority order.
func (v Vocabulary) ordered() []keywordSet {
	return []keywordSet{
		{ActionCombat, v.Combat},
		{ActionSocial, v.Social},
		{ActionExploration, v.Exploration},
		{ActionMagic, v.Magic},
	}
}

func (v Vocabulary) clone() Vocabulary {
	return v.Merge(Vocabulary{})
}

func (v Vocabulary) normalised() Vocabulary {
	lower := func(ws []string) []string {
		out := make([]string, 0, len(ws))
		for _, w := range ws {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				out = append(out, w)
			}
		}
		return out
	}
	return Vocabulary{
		Combat:      lower(v.Combat),
		Social:      lower(v.Social),
		Exploration: lower(v.Exploration),
		Magic:       lower(v.Magic),
		Spells:      lower(v.Spells),
		NPCs:        lower(v.NPCs),
	}
}

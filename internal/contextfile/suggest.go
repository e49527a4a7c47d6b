package contextfile

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

// SuggestThreshold is the minimum Jaro-Winkler similarity for [Store.Suggest]
// to offer a document ID.
const SuggestThreshold = 0.85

// Suggest returns the ID of the stored document whose ID or filename is most
// similar to id, for "did you mean" hints on failed lookups. ok is false when
// nothing scores at least [SuggestThreshold] or id itself exists.
func (s *Store) Suggest(id string) (string, bool) {
	query := normaliseKey(id)
	if query == "" {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, exists := s.docs[id]; exists {
		return "", false
	}

	var (
		best  string
		score float64
	)
	for _, d := range sortedDocs(s.docs) {
		for _, cand := range []string{d.ID, strings.TrimSuffix(d.Filename, ".md")} {
			if v := matchr.JaroWinkler(query, normaliseKey(cand), false); v > score {
				best, score = d.ID, v
			}
		}
	}
	return best, score >= SuggestThreshold
}

// notFound wraps [ErrNotFound] for id, adding the closest existing ID when
// there is one.
func (s *Store) notFound(id string) error {
	if hint, ok := s.Suggest(id); ok {
		return fmt.Errorf("%w: %q (did you mean %q?)", ErrNotFound, id, hint)
	}
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}

func normaliseKey(s string) string {
	return strings.ToLower(strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), ""))
}

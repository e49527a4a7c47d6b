// Package preferences persists the player's taste profile (genres, media,
// themes) that the narrator uses to flavour a campaign.
//
// The profile is stored as a single JSON blob under
// [kv.KeyPlayerPreferences]:
//
//	{"preferences": {...}, "isCollected": true}
//
// A missing or unreadable blob is treated as "not collected yet".
package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/MrWong99/dungeonmaster/pkg/kv"
)

// ErrNotCollected is returned by [Store.Update] when no preferences have been
// stored yet.
var ErrNotCollected = errors.New("preferences: not collected")

// PlayerPreferences describes what the player enjoys. Every field is optional.
type PlayerPreferences struct {
	FavoriteGenres          []string `json:"favoriteGenres,omitempty"          yaml:"favorite_genres"`
	FavoriteCharacters      []string `json:"favoriteCharacters,omitempty"      yaml:"favorite_characters"`
	PreferredNarrativeStyle string   `json:"preferredNarrativeStyle,omitempty" yaml:"preferred_narrative_style"`
	Age                     int      `json:"age,omitempty"                     yaml:"age"`
	Interests               []string `json:"interests,omitempty"               yaml:"interests"`
	FavoriteBooks           []string `json:"favoriteBooks,omitempty"           yaml:"favorite_books"`
	FavoriteMovies          []string `json:"favoriteMovies,omitempty"          yaml:"favorite_movies"`
	FavoriteGames           []string `json:"favoriteGames,omitempty"           yaml:"favorite_games"`
	PersonalityTraits       []string `json:"personalityTraits,omitempty"       yaml:"personality_traits"`
	PreferredThemes         []string `json:"preferredThemes,omitempty"         yaml:"preferred_themes"`
}

// Clone returns a deep copy of p. A nil receiver yields nil.
func (p *PlayerPreferences) Clone() *PlayerPreferences {
	if p == nil {
		return nil
	}
	c := *p
	c.FavoriteGenres = slices.Clone(p.FavoriteGenres)
	c.FavoriteCharacters = slices.Clone(p.FavoriteCharacters)
	c.Interests = slices.Clone(p.Interests)
	c.FavoriteBooks = slices.Clone(p.FavoriteBooks)
	c.FavoriteMovies = slices.Clone(p.FavoriteMovies)
	c.FavoriteGames = slices.Clone(p.FavoriteGames)
	c.PersonalityTraits = slices.Clone(p.PersonalityTraits)
	c.PreferredThemes = slices.Clone(p.PreferredThemes)
	return &c
}

// State is the persisted envelope.
type State struct {
	Preferences *PlayerPreferences `json:"preferences"`
	IsCollected bool               `json:"isCollected"`
}

// Store reads and writes [State] through a [kv.Backend]. Reads always go to
// the backend so that several processes sharing one backend see each
// other's writes.
type Store struct {
	mu      sync.Mutex // serialises read-modify-write in Update
	backend kv.Backend
	key     string
	log     *slog.Logger
}

// Option configures a [Store].
type Option func(*Store)

// WithKey overrides the backend key. Defaults to [kv.KeyPlayerPreferences].
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used when a stored blob cannot be decoded.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore returns a Store backed by backend. A nil backend is replaced with
// an in-memory one.
func NewStore(backend kv.Backend, opts ...Option) *Store {
	if backend == nil {
		backend = kv.NewMemBackend(nil)
	}
	s := &Store{
		backend: backend,
		key:     kv.KeyPlayerPreferences,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the stored envelope. A missing or corrupt blob yields the
// zero State; only backend failures are returned as errors.
func (s *Store) State(ctx context.Context) (State, error) {
	raw, ok, err := s.backend.GetItem(ctx, s.key)
	if err != nil {
		return State{}, fmt.Errorf("preferences: read %q: %w", s.key, err)
	}
	if !ok || raw == "" {
		return State{}, nil
	}
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		s.log.Warn("preferences: discarding corrupt blob", "key", s.key, "err", err)
		return State{}, nil
	}
	return st, nil
}

// Get returns the stored preferences, or nil when none have been collected.
func (s *Store) Get(ctx context.Context) (*PlayerPreferences, error) {
	st, err := s.State(ctx)
	if err != nil {
		return nil, err
	}
	return st.Preferences, nil
}

// Set stores p and marks the profile as collected. It is also the import
// path for preferences received from another device.
func (s *Store) Set(ctx context.Context, p PlayerPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, State{Preferences: &p, IsCollected: true})
}

// Update applies fn to the stored preferences and persists the result.
// It returns [ErrNotCollected] when nothing is stored yet.
func (s *Store) Update(ctx context.Context, fn func(p *PlayerPreferences)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.State(ctx)
	if err != nil {
		return err
	}
	if st.Preferences == nil {
		return ErrNotCollected
	}
	fn(st.Preferences)
	return s.write(ctx, st)
}

// Clear removes the stored profile.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.RemoveItem(ctx, s.key); err != nil {
		return fmt.Errorf("preferences: remove %q: %w", s.key, err)
	}
	return nil
}

func (s *Store) write(ctx context.Context, st State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("preferences: encode: %w", err)
	}
	if err := s.backend.SetItem(ctx, s.key, string(b)); err != nil {
		return fmt.Errorf("preferences: write %q: %w", s.key, err)
	}
	return nil
}

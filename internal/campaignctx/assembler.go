// Package campaignctx assembles the per-turn [CampaignContext] that is
// injected into every Dungeon Master LLM call.
//
// Assembly runs the current player action through the classifier, selects
// the relevant context documents, resolves the character facts and infers
// the current location from recent history:
//
//	action → classify → select → trim history → facts → location
//
// Every lookup degrades to a default, so [Assembler.Build] always returns a
// usable context. Use [FormatSystemPrompt] to render the result.
package campaignctx

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/dungeonmaster/internal/classify"
	"github.com/MrWong99/dungeonmaster/internal/contextfile"
	"github.com/MrWong99/dungeonmaster/internal/observe"
	"github.com/MrWong99/dungeonmaster/internal/preferences"
	"github.com/MrWong99/dungeonmaster/internal/relevance"
)

// DefaultMaxHistory is the number of history entries kept in a context.
const DefaultMaxHistory = 10

// DefaultCharacter holds the facts used when neither the character sheet nor
// the caller know a value.
var DefaultCharacter = contextfile.CharacterFacts{
	Name:       "Adventurer",
	Class:      contextfile.DefaultClass,
	Level:      1,
	Background: contextfile.DefaultBackground,
}

// ─────────────────────────────────────────────────────────────────────────────
// Public types
// ─────────────────────────────────────────────────────────────────────────────

// CampaignContext is the assembled context for one player turn. It is built
// fresh every turn and never persisted.
type CampaignContext struct {
	CharacterName       string `json:"characterName"`
	CharacterClass      string `json:"characterClass"`
	CharacterLevel      int    `json:"characterLevel"`
	CharacterBackground string `json:"characterBackground"`

	// RecentHistory is the tail of the turn history, oldest first.
	RecentHistory []string `json:"recentHistory"`

	// CurrentLocation is a best-effort location noun, or [UnknownLocation].
	CurrentLocation string `json:"currentLocation"`

	// ContextFiles is the ranked document selection, character sheet first.
	ContextFiles []contextfile.Document `json:"contextFiles"`

	EntityExtraction classify.Extraction `json:"entityExtraction"`

	// PlayerPreferences is passed through unmodified; nil when unknown.
	PlayerPreferences *preferences.PlayerPreferences `json:"playerPreferences,omitempty"`
}

// Facts returns the resolved character facts.
func (c *CampaignContext) Facts() contextfile.CharacterFacts {
	return contextfile.CharacterFacts{
		Name:       c.CharacterName,
		Class:      c.CharacterClass,
		Level:      c.CharacterLevel,
		Background: c.CharacterBackground,
	}
}

// PreferencesSource supplies player preferences when the caller has none.
// Get returns nil when no preferences are stored.
type PreferencesSource interface {
	Get(ctx context.Context) (*preferences.PlayerPreferences, error)
}

var _ PreferencesSource = (*preferences.Store)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Assembler
// ─────────────────────────────────────────────────────────────────────────────

// Assembler builds a [CampaignContext] from a document source.
type Assembler struct {
	docs       relevance.Source
	prefs      PreferencesSource
	classifier *classify.Classifier
	selector   *relevance.Selector
	maxHistory int
	metrics    *observe.Metrics
	log        *slog.Logger
}

// Option is a functional option for [NewAssembler].
type Option func(*Assembler)

// WithPreferences sets the store consulted when Build receives nil
// preferences.
func WithPreferences(p PreferencesSource) Option {
	return func(a *Assembler) { a.prefs = p }
}

// WithClassifier replaces the default action classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(a *Assembler) {
		if c != nil {
			a.classifier = c
		}
	}
}

// WithSelector replaces the default relevance selector.
func WithSelector(s *relevance.Selector) Option {
	return func(a *Assembler) {
		if s != nil {
			a.selector = s
		}
	}
}

// WithMaxHistory caps the number of history entries kept. Defaults to
// [DefaultMaxHistory]; values below 1 are ignored.
func WithMaxHistory(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.maxHistory = n
		}
	}
}

// WithMetrics records build latency and selection size on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Assembler) { a.metrics = m }
}

// WithLogger sets the logger used for degraded lookups.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAssembler creates an [Assembler] reading documents from docs. A nil
// docs behaves like an empty store.
func NewAssembler(docs relevance.Source, opts ...Option) *Assembler {
	if docs == nil {
		docs = emptySource{}
	}
	a := &Assembler{
		docs:       docs,
		classifier: classify.Default(),
		selector:   relevance.New(),
		maxHistory: DefaultMaxHistory,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Build assembles the context for action.
//
// Character facts resolve per field: the selected character_sheet document
// wins, then fallback, then [DefaultCharacter]. When prefs is nil the
// configured [PreferencesSource] is consulted; a failing source is logged
// and treated as "no preferences".
func (a *Assembler) Build(
	ctx context.Context,
	action string,
	history []string,
	fallback contextfile.CharacterFacts,
	prefs *preferences.PlayerPreferences,
) CampaignContext {
	ctx, span := observe.StartSpan(ctx, "campaignctx.Build")
	defer span.End()
	start := time.Now()

	if prefs == nil && a.prefs != nil {
		p, err := a.prefs.Get(ctx)
		if err != nil {
			a.log.WarnContext(ctx, "campaignctx: preferences unavailable", "err", err)
		} else {
			prefs = p
		}
	}

	ext := a.classifier.Classify(action)
	files := a.selector.Select(ext, a.docs)
	recent := TrimHistory(history, a.maxHistory)

	var parsed contextfile.CharacterFacts
	if len(files) > 0 && files[0].ID == contextfile.CharacterSheetID {
		parsed = contextfile.ExtractCharacterFacts(files[0].Content)
	}
	facts := parsed.Fallback(fallback).Fallback(DefaultCharacter)

	cc := CampaignContext{
		CharacterName:       facts.Name,
		CharacterClass:      facts.Class,
		CharacterLevel:      facts.Level,
		CharacterBackground: facts.Background,
		RecentHistory:       recent,
		CurrentLocation:     InferLocation(recent),
		ContextFiles:        files,
		EntityExtraction:    ext,
		PlayerPreferences:   prefs,
	}

	span.SetAttributes(
		attribute.String("action_type", string(ext.ActionType)),
		attribute.Int("context_files", len(files)),
	)
	if a.metrics != nil {
		a.metrics.ContextBuildDuration.Record(ctx, time.Since(start).Seconds())
		a.metrics.ContextFilesSelected.Record(ctx, int64(len(files)))
	}
	return cc
}

type emptySource struct{}

func (emptySource) Get(string) (contextfile.Document, bool) { return contextfile.Document{}, false }
func (emptySource) All() []contextfile.Document             { return nil }

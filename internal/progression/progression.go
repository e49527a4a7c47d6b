// Package progression records game events in the character_progression
// journal. Events form a closed set: [SpellCast], [CombatVictory] and
// [SocialInteraction].
package progression

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/dungeonmaster/internal/contextfile"
)

// Event is a game event worth journaling. The interface is sealed; only the
// types in this package implement it.
type Event interface {
	// Kind returns the wire name of the event ("spell_cast", ...).
	Kind() string

	// section renders the markdown lines following the timestamp heading.
	section() string
}

// SpellCast records a spell being cast.
type SpellCast struct {
	SpellName string `json:"spellName"`
	Level     int    `json:"level"`
	Target    string `json:"target"`
	Result    string `json:"result"`
}

// CombatVictory records a won fight.
type CombatVictory struct {
	Enemy   string `json:"enemy"`
	XP      int    `json:"xp"`
	Tactics string `json:"tactics"`
}

// SocialInteraction records a notable conversation.
type SocialInteraction struct {
	NPC     string `json:"npc"`
	Type    string `json:"type"`
	Outcome string `json:"outcome"`
}

// Event kinds.
const (
	KindSpellCast         = "spell_cast"
	KindCombatVictory     = "combat_victory"
	KindSocialInteraction = "social_interaction"
)

func (SpellCast) Kind() string         { return KindSpellCast }
func (CombatVictory) Kind() string     { return KindCombatVictory }
func (SocialInteraction) Kind() string { return KindSocialInteraction }

func (e SpellCast) section() string {
	return fmt.Sprintf("**Spell Cast**: %s\n- Spell Level: %d\n- Target: %s\n- Result: %s\n",
		e.SpellName, e.Level, e.Target, e.Result)
}

func (e CombatVictory) section() string {
	return fmt.Sprintf("**Combat Victory**: %s\n- Experience Gained: %d\n- Tactics Used: %s\n",
		e.Enemy, e.XP, e.Tactics)
}

func (e SocialInteraction) section() string {
	return fmt.Sprintf("**Social Interaction**: %s\n- Interaction Type: %s\n- Outcome: %s\n",
		e.NPC, e.Type, e.Outcome)
}

// Appender is the write side of the document store used by [Recorder].
// *contextfile.Store satisfies it.
type Appender interface {
	Append(ctx context.Context, id, text string) error
}

var _ Appender = (*contextfile.Store)(nil)

// Recorder appends events to the progression document.
type Recorder struct {
	store Appender
	docID string
	now   func() time.Time
	log   *slog.Logger
}

// Option configures a [Recorder].
type Option func(*Recorder)

// WithClock replaces time.Now for entry headings.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithDocumentID overrides the journal document (character_progression).
func WithDocumentID(id string) Option {
	return func(r *Recorder) {
		if id != "" {
			r.docID = id
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store Appender, opts ...Option) *Recorder {
	r := &Recorder{
		store: store,
		docID: contextfile.CharacterProgressionID,
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Entry renders the journal section for ev at ts.
func Entry(ev Event, ts time.Time) string {
	return "\n## " + ts.UTC().Format("2006-01-02T15:04:05.000Z") + "\n" + ev.section()
}

// Record appends ev to the journal. It is a no-op when the journal document
// does not exist.
func (r *Recorder) Record(ctx context.Context, ev Event) error {
	if ev == nil {
		return nil
	}
	if err := r.store.Append(ctx, r.docID, Entry(ev, r.now())); err != nil {
		return fmt.Errorf("progression: record %s: %w", ev.Kind(), err)
	}
	r.log.Debug("progression: recorded event", "kind", ev.Kind(), "document", r.docID)
	return nil
}

// RecordAll records events in order and stops at the first error.
func (r *Recorder) RecordAll(ctx context.Context, events []Event) error {
	for _, ev := range events {
		if err := r.Record(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// knownEnemies is searched in order by [EnemyFromNarrative].
var knownEnemies = []string{"goblin", "orc", "skeleton", "wolf", "bandit"}

// UnknownEnemy is returned by [EnemyFromNarrative] when nothing matches.
const UnknownEnemy = "unknown enemy"

// EnemyFromNarrative returns the first known enemy name mentioned in text.
func EnemyFromNarrative(text string) string {
	lower := strings.ToLower(text)
	for _, e := range knownEnemies {
		if strings.Contains(lower, e) {
			return e
		}
	}
	return UnknownEnemy
}

// Tagged pairs an event with its kind for JSON encoding.
type Tagged struct {
	Kind string `json:"kind"`
	Data Event  `json:"data"`
}

// Tag wraps events for encoding. A nil slice yields an empty one.
func Tag(events []Event) []Tagged {
	out := make([]Tagged, 0, len(events))
	for _, ev := range events {
		out = append(out, Tagged{Kind: ev.Kind(), Data: ev})
	}
	return out
}

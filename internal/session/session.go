// Package session persists the state that outlives a single page load or
// CLI invocation: the active session record and the player's campaigns.
//
// A session expires 30 days after its last activity. Clearing a session
// wipes everything the service stores for the player: the session itself,
// campaigns, context files and preferences.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/dungeonmaster/internal/preferences"
	"github.com/MrWong99/dungeonmaster/pkg/kv"
)

// DefaultTTL is how long a session survives without activity.
const DefaultTTL = 30 * 24 * time.Hour

// Data is the persisted session record.
type Data struct {
	CharacterName       string                         `json:"characterName,omitempty"`
	CharacterClass      string                         `json:"characterClass,omitempty"`
	CharacterLevel      int                            `json:"characterLevel,omitempty"`
	CharacterBackground string                         `json:"characterBackground,omitempty"`
	PlayerPreferences   *preferences.PlayerPreferences `json:"playerPreferences,omitempty"`
	ActiveCampaignID    string                         `json:"activeCampaignId,omitempty"`
	LastActivity        time.Time                      `json:"lastActivity"`
}

// clearedKeys are removed by [Manager.Clear].
var clearedKeys = []string{
	kv.KeySession,
	kv.KeyCampaigns,
	kv.KeyContextFiles,
	kv.KeyPlayerPreferences,
}

// Manager saves, loads and clears the session record.
type Manager struct {
	backend kv.Backend
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger

	mu      sync.Mutex
	onClear []func(context.Context)
}

// Option configures a [Manager].
type Option func(*Manager)

// WithTTL overrides [DefaultTTL]. Non-positive values are ignored.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger used for discarded records.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager returns a Manager persisting to backend. A nil backend is
// replaced with an in-memory one.
func NewManager(backend kv.Backend, opts ...Option) *Manager {
	if backend == nil {
		backend = kv.NewMemBackend(nil)
	}
	m := &Manager{
		backend: backend,
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Save stores d with LastActivity set to now and returns the stored record.
func (m *Manager) Save(ctx context.Context, d Data) (Data, error) {
	d.LastActivity = m.now().UTC()
	b, err := json.Marshal(d)
	if err != nil {
		return Data{}, fmt.Errorf("session: encode: %w", err)
	}
	if err := m.backend.SetItem(ctx, kv.KeySession, string(b)); err != nil {
		return Data{}, fmt.Errorf("session: save: %w", err)
	}
	return d, nil
}

// Load returns the stored session, or nil when there is none. A corrupt
// record is discarded; an expired one triggers [Manager.Clear].
func (m *Manager) Load(ctx context.Context) (*Data, error) {
	raw, ok, err := m.backend.GetItem(ctx, kv.KeySession)
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var d Data
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		m.log.WarnContext(ctx, "session: discarding corrupt record", "err", err)
		return nil, nil
	}
	if !d.LastActivity.After(m.now().Add(-m.ttl)) {
		m.log.InfoContext(ctx, "session: expired", "last_activity", d.LastActivity)
		if err := m.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &d, nil
}

// Active reports whether an unexpired session exists.
func (m *Manager) Active(ctx context.Context) (bool, error) {
	d, err := m.Load(ctx)
	return d != nil, err
}

// OnClear registers fn to run after every [Manager.Clear], including the
// one triggered by an expired session. Components caching player data in
// memory use it to drop their copy.
func (m *Manager) OnClear(fn func(context.Context)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClear = append(m.onClear, fn)
}

// Clear removes the session and all player data stored next to it. Every
// key is attempted; the failures are joined. OnClear hooks run even when
// some removals failed.
func (m *Manager) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range clearedKeys {
		if err := m.backend.RemoveItem(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("session: remove %q: %w", key, err))
		}
	}
	m.mu.Lock()
	hooks := m.onClear
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(ctx)
	}
	return errors.Join(errs...)
}

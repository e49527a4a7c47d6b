package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/dungeonmaster/internal/preferences"
	"github.com/MrWong99/dungeonmaster/pkg/kv"
)

// Sentinel errors returned by [Campaigns].
var (
	ErrCampaignNotFound = errors.New("session: campaign not found")
	ErrNoActiveCampaign = errors.New("session: no active campaign")
	ErrMalformedBundle  = errors.New("session: campaign bundle has no campaign object")
)

// previewRunes caps [Campaign.LastMessage].
const previewRunes = 50

// MessageType identifies the author of a campaign message.
type MessageType string

const (
	MessageUser      MessageType = "user"
	MessageAssistant MessageType = "assistant"
)

// Message is one chat entry of a campaign.
type Message struct {
	ID      int64       `json:"id"`
	Type    MessageType `json:"type"`
	Content string      `json:"content"`
}

// Campaign is a named conversation with the narrator.
type Campaign struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Messages    []Message `json:"messages"`
	LastMessage string    `json:"lastMessage,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	IsActive    bool      `json:"isActive"`
}

// CampaignList is the persisted envelope.
type CampaignList struct {
	Campaigns        []Campaign `json:"campaigns"`
	ActiveCampaignID string     `json:"activeCampaignId,omitempty"`
}

// Active returns the active campaign.
func (l CampaignList) Active() (Campaign, bool) {
	i := l.index(l.ActiveCampaignID)
	if i < 0 {
		return Campaign{}, false
	}
	return l.Campaigns[i], true
}

func (l CampaignList) index(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(l.Campaigns, func(c Campaign) bool { return c.ID == id })
}

// setActive marks id active and every other campaign inactive.
func (l *CampaignList) setActive(id string) {
	l.ActiveCampaignID = id
	for i := range l.Campaigns {
		l.Campaigns[i].IsActive = l.Campaigns[i].ID == id
	}
}

// Campaigns stores the player's campaigns under [kv.KeyCampaigns]. Every
// call reads the backend, applies its change and writes the list back.
type Campaigns struct {
	mu      sync.Mutex
	backend kv.Backend
	now     func() time.Time
	log     *slog.Logger
}

// NewCampaigns returns a campaign store on backend. A nil backend is
// replaced with an in-memory one.
func NewCampaigns(backend kv.Backend, now func() time.Time) *Campaigns {
	if backend == nil {
		backend = kv.NewMemBackend(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &Campaigns{backend: backend, now: now, log: slog.Default()}
}

// List returns the stored campaigns, newest first.
func (c *Campaigns) List(ctx context.Context) (CampaignList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(ctx)
}

// Get returns the campaign with id.
func (c *Campaigns) Get(ctx context.Context, id string) (Campaign, error) {
	l, err := c.List(ctx)
	if err != nil {
		return Campaign{}, err
	}
	i := l.index(id)
	if i < 0 {
		return Campaign{}, fmt.Errorf("%w: %q", ErrCampaignNotFound, id)
	}
	return l.Campaigns[i], nil
}

// Create starts a new campaign with a welcome message and makes it active.
// An empty name gets a generated one.
func (c *Campaigns) Create(ctx context.Context, name string) (Campaign, error) {
	var created Campaign
	err := c.update(ctx, func(l *CampaignList, now time.Time) error {
		if name == "" {
			name = fmt.Sprintf("New Campaign %d", now.UnixMilli())
		}
		created = Campaign{
			ID:   uuid.NewString(),
			Name: name,
			Messages: []Message{{
				ID:      1,
				Type:    MessageAssistant,
				Content: fmt.Sprintf("Welcome to **%s**! Your adventure begins now. What would you like to do?", name),
			}},
			LastMessage: "Your adventure begins now...",
			Timestamp:   now,
		}
		l.Campaigns = append([]Campaign{created}, l.Campaigns...)
		l.setActive(created.ID)
		created.IsActive = true
		return nil
	})
	return created, err
}

// Select makes id the active campaign.
func (c *Campaigns) Select(ctx context.Context, id string) error {
	return c.update(ctx, func(l *CampaignList, _ time.Time) error {
		if l.index(id) < 0 {
			return fmt.Errorf("%w: %q", ErrCampaignNotFound, id)
		}
		l.setActive(id)
		return nil
	})
}

// Rename changes the name of campaign id.
func (c *Campaigns) Rename(ctx context.Context, id, name string) error {
	return c.update(ctx, func(l *CampaignList, _ time.Time) error {
		i := l.index(id)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrCampaignNotFound, id)
		}
		l.Campaigns[i].Name = name
		return nil
	})
}

// Delete removes campaign id. Deleting the active campaign activates the
// first remaining one. Deleting an absent id is a no-op.
func (c *Campaigns) Delete(ctx context.Context, id string) error {
	return c.update(ctx, func(l *CampaignList, _ time.Time) error {
		i := l.index(id)
		if i < 0 {
			return nil
		}
		l.Campaigns = slices.Delete(l.Campaigns, i, i+1)
		active := l.ActiveCampaignID
		if active == id {
			active = ""
			if len(l.Campaigns) > 0 {
				active = l.Campaigns[0].ID
			}
		}
		l.setActive(active)
		return nil
	})
}

// AddMessage appends a message to the active campaign and returns it.
// Message ids are millisecond timestamps, bumped to stay increasing.
func (c *Campaigns) AddMessage(ctx context.Context, typ MessageType, content string) (Message, error) {
	var msg Message
	err := c.update(ctx, func(l *CampaignList, now time.Time) error {
		i := l.index(l.ActiveCampaignID)
		if i < 0 {
			return ErrNoActiveCampaign
		}
		camp := &l.Campaigns[i]
		msg = Message{ID: now.UnixMilli(), Type: typ, Content: content}
		if n := len(camp.Messages); n > 0 && msg.ID <= camp.Messages[n-1].ID {
			msg.ID = camp.Messages[n-1].ID + 1
		}
		camp.Messages = append(camp.Messages, msg)
		camp.LastMessage = preview(content)
		camp.Timestamp = now
		return nil
	})
	return msg, err
}

// ─── Import ──────────────────────────────────────────────────────────────────

// Bundle is an exported campaign, optionally with the preferences it was
// played with.
type Bundle struct {
	Campaign          *Campaign                      `json:"campaign"`
	PlayerPreferences *preferences.PlayerPreferences `json:"playerPreferences"`
}

// DecodeBundle reads a [Bundle] from r. A payload without a "campaign"
// object fails with [ErrMalformedBundle].
func DecodeBundle(r io.Reader) (Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return Bundle{}, fmt.Errorf("%w: %w", ErrMalformedBundle, err)
	}
	if b.Campaign == nil {
		return Bundle{}, ErrMalformedBundle
	}
	return b, nil
}

// Import adds camp as the active campaign. It keeps camp's messages and
// name but gets a fresh id when camp has none or its id is already taken.
// A missing name, timestamp or preview is filled in.
func (c *Campaigns) Import(ctx context.Context, camp Campaign) (Campaign, error) {
	err := c.update(ctx, func(l *CampaignList, now time.Time) error {
		if camp.ID == "" || l.index(camp.ID) >= 0 {
			camp.ID = uuid.NewString()
		}
		if camp.Name == "" {
			camp.Name = fmt.Sprintf("Imported Campaign %d", now.UnixMilli())
		}
		if camp.Timestamp.IsZero() {
			camp.Timestamp = now
		}
		if camp.Messages == nil {
			camp.Messages = []Message{}
		}
		if n := len(camp.Messages); camp.LastMessage == "" && n > 0 {
			camp.LastMessage = preview(camp.Messages[n-1].Content)
		}
		l.Campaigns = append([]Campaign{camp}, l.Campaigns...)
		l.setActive(camp.ID)
		camp.IsActive = true
		return nil
	})
	if err != nil {
		return Campaign{}, err
	}
	return camp, nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewRunes {
		return s
	}
	return string(r[:previewRunes]) + "..."
}

// update runs fn on the stored list and persists the result when fn
// succeeds.
func (c *Campaigns) update(ctx context.Context, fn func(l *CampaignList, now time.Time) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, err := c.read(ctx)
	if err != nil {
		return err
	}
	if err := fn(&l, c.now().UTC()); err != nil {
		return err
	}
	b, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("session: encode campaigns: %w", err)
	}
	if err := c.backend.SetItem(ctx, kv.KeyCampaigns, string(b)); err != nil {
		return fmt.Errorf("session: save campaigns: %w", err)
	}
	return nil
}

func (c *Campaigns) read(ctx context.Context) (CampaignList, error) {
	raw, ok, err := c.backend.GetItem(ctx, kv.KeyCampaigns)
	if err != nil {
		return CampaignList{}, fmt.Errorf("session: load campaigns: %w", err)
	}
	var l CampaignList
	if !ok || raw == "" {
		return l, nil
	}
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		c.log.WarnContext(ctx, "session: discarding corrupt campaign list", "err", err)
		return CampaignList{}, nil
	}
	return l, nil
}

// Package narrator runs one Dungeon Master turn end to end.
//
// A turn assembles the campaign context for the player's action, renders the
// DM prompt, asks the LLM for a narrative, cleans it up, detects progression
// events from the action and narrative, and writes those events to the
// character journal:
//
//	action → campaignctx.Build → FormatSystemPrompt → llm.Complete
//	       → CleanResponse → progression.Detect → Recorder.RecordAll
//
// Only the LLM call can fail a turn. Journal and chat-log writes are logged
// and reported on the result.
package narrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/dungeonmaster/internal/campaignctx"
	"github.com/MrWong99/dungeonmaster/internal/contextfile"
	"github.com/MrWong99/dungeonmaster/internal/observe"
	"github.com/MrWong99/dungeonmaster/internal/preferences"
	"github.com/MrWong99/dungeonmaster/internal/progression"
	"github.com/MrWong99/dungeonmaster/internal/session"
	"github.com/MrWong99/dungeonmaster/pkg/provider/llm"
)

// ErrEmptyAction is returned by [Narrator.Turn] for blank player input.
var ErrEmptyAction = errors.New("narrator: action must not be empty")

// Sampling holds the generation parameters sent with every turn.
type Sampling struct {
	Temperature float64 `yaml:"temperature" json:"temperature"`
	TopP        float64 `yaml:"top_p"       json:"topP"`
	TopK        int     `yaml:"top_k"       json:"topK"`
	MaxTokens   int     `yaml:"max_tokens"  json:"maxTokens"`
}

// DefaultSampling keeps narration short and moderately creative.
var DefaultSampling = Sampling{Temperature: 0.7, TopP: 0.8, TopK: 40, MaxTokens: 300}

// Over returns base with every non-zero field of s applied on top.
func (s Sampling) Over(base Sampling) Sampling {
	if s.Temperature != 0 {
		base.Temperature = s.Temperature
	}
	if s.TopP != 0 {
		base.TopP = s.TopP
	}
	if s.TopK != 0 {
		base.TopK = s.TopK
	}
	if s.MaxTokens != 0 {
		base.MaxTokens = s.MaxTokens
	}
	return base
}

// ContextBuilder assembles the per-turn campaign context.
// *campaignctx.Assembler satisfies it.
type ContextBuilder interface {
	Build(ctx context.Context, action string, history []string, fallback contextfile.CharacterFacts, prefs *preferences.PlayerPreferences) campaignctx.CampaignContext
}

// EventRecorder writes progression events. *progression.Recorder satisfies
// it.
type EventRecorder interface {
	RecordAll(ctx context.Context, events []progression.Event) error
}

// MessageLog receives the player and DM messages of each turn.
// *session.Campaigns satisfies it.
type MessageLog interface {
	AddMessage(ctx context.Context, typ session.MessageType, content string) (session.Message, error)
}

var (
	_ ContextBuilder = (*campaignctx.Assembler)(nil)
	_ EventRecorder  = (*progression.Recorder)(nil)
	_ MessageLog     = (*session.Campaigns)(nil)
)

// TurnRequest is the input of one turn.
type TurnRequest struct {
	// Action is the player's free-text input.
	Action string `json:"action"`

	// History is the turn history so far, oldest first, as produced by
	// [campaignctx.FormatHistoryEntry].
	History []string `json:"history,omitempty"`

	// Character supplies facts used when the character sheet lacks them.
	Character contextfile.CharacterFacts `json:"character"`

	// Preferences overrides the stored player preferences when non-nil.
	Preferences *preferences.PlayerPreferences `json:"preferences,omitempty"`
}

// TurnResult is the output of one turn.
type TurnResult struct {
	Narrative string                      `json:"narrative"`
	Context   campaignctx.CampaignContext `json:"context"`
	Events    []progression.Event         `json:"-"`

	// History is the request history followed by this turn's player and DM
	// entries.
	History []string `json:"history"`

	// MessageID identifies the DM message in the chat log and the prompt
	// log.
	MessageID int64 `json:"messageId"`

	Usage    llm.Usage     `json:"usage"`
	Daily    DailyUsage    `json:"dailyUsage"`
	Duration time.Duration `json:"durationNs"`

	// RecordErr is set when the events could not be journaled.
	RecordErr error `json:"-"`
}

// Narrator runs turns. It is safe for concurrent use when its collaborators
// are.
type Narrator struct {
	builder  ContextBuilder
	provider llm.Provider
	recorder EventRecorder
	messages MessageLog
	usage    *UsageTracker
	prompts  *PromptLog
	metrics  *observe.Metrics
	name     string
	now      func() time.Time
	log      *slog.Logger

	mu       sync.RWMutex
	sampling Sampling
}

// Option is a functional option for [New].
type Option func(*Narrator)

// WithRecorder journals detected events.
func WithRecorder(r EventRecorder) Option {
	return func(n *Narrator) { n.recorder = r }
}

// WithMessageLog appends each turn to the active campaign's chat.
func WithMessageLog(m MessageLog) Option {
	return func(n *Narrator) { n.messages = m }
}

// WithSampling overrides [DefaultSampling]. Zero fields keep the default.
func WithSampling(s Sampling) Option {
	return func(n *Narrator) { n.sampling = s.Over(n.sampling) }
}

// WithUsageTracker shares a usage tracker, e.g. with an HTTP handler.
func WithUsageTracker(u *UsageTracker) Option {
	return func(n *Narrator) {
		if u != nil {
			n.usage = u
		}
	}
}

// WithPromptLog keeps each prompt for later inspection.
func WithPromptLog(l *PromptLog) Option {
	return func(n *Narrator) { n.prompts = l }
}

// WithMetrics records turn and provider metrics on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(n *Narrator) { n.metrics = m }
}

// WithProviderName labels provider metrics. Defaults to "llm".
func WithProviderName(name string) Option {
	return func(n *Narrator) {
		if name != "" {
			n.name = name
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(n *Narrator) {
		if now != nil {
			n.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Narrator) {
		if l != nil {
			n.log = l
		}
	}
}

// New creates a Narrator.
func New(builder ContextBuilder, provider llm.Provider, opts ...Option) (*Narrator, error) {
	if builder == nil {
		return nil, fmt.Errorf("narrator: context builder must not be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("narrator: llm provider must not be nil")
	}
	n := &Narrator{
		builder:  builder,
		provider: provider,
		sampling: DefaultSampling,
		name:     "llm",
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(n)
	}
	if n.usage == nil {
		n.usage = NewUsageTracker(n.now)
	}
	return n, nil
}

// Usage returns the tracker counting this narrator's requests.
func (n *Narrator) Usage() *UsageTracker { return n.usage }

// Prompts returns the prompt log, or nil when none is configured.
func (n *Narrator) Prompts() *PromptLog { return n.prompts }

// Sampling returns the sampling parameters used for the next turn.
func (n *Narrator) Sampling() Sampling {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sampling
}

// SetSampling replaces the sampling parameters for subsequent turns. Zero
// fields of s fall back to [DefaultSampling].
func (n *Narrator) SetSampling(s Sampling) {
	n.mu.Lock()
	n.sampling = s.Over(DefaultSampling)
	n.mu.Unlock()
}

// Preview assembles the context and prompt for req without calling the LLM
// or writing anything.
func (n *Narrator) Preview(ctx context.Context, req TurnRequest) (campaignctx.CampaignContext, string) {
	cc := n.builder.Build(ctx, req.Action, req.History, req.Character, req.Preferences)
	return cc, campaignctx.FormatSystemPrompt(req.Action, &cc)
}

// Turn runs one narration turn for req.
func (n *Narrator) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	action := strings.TrimSpace(req.Action)
	if action == "" {
		return nil, ErrEmptyAction
	}
	ctx, span := observe.StartSpan(ctx, "narrator.Turn",
		trace.WithAttributes(attribute.String("provider", n.name)))
	defer span.End()
	log := observe.Logger(ctx, n.log).With("provider", n.name)
	start := n.now()

	cc := n.builder.Build(ctx, action, req.History, req.Character, req.Preferences)
	prompt := campaignctx.FormatSystemPrompt(action, &cc)

	sampling := n.Sampling()
	llmStart := time.Now()
	resp, err := n.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: prompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: action}},
		Temperature:  sampling.Temperature,
		TopP:         sampling.TopP,
		TopK:         sampling.TopK,
		MaxTokens:    sampling.MaxTokens,
	})
	if n.metrics != nil {
		n.metrics.RecordLLMDuration(ctx, n.name, time.Since(llmStart).Seconds())
	}
	if err == nil && (resp == nil || strings.TrimSpace(resp.Content) == "") {
		err = errors.New("empty completion")
	}
	if err != nil {
		daily := n.usage.RecordError()
		if n.metrics != nil {
			n.metrics.RecordProviderRequest(ctx, n.name, "error")
			n.metrics.RecordProviderError(ctx, n.name)
		}
		log.ErrorContext(ctx, "narrator: completion failed", "err", err, "daily_errors", daily.Errors)
		return nil, observe.Fail(span, fmt.Errorf("narrator: generate response: %w", err))
	}

	narrative := CleanResponse(resp.Content)
	daily := n.usage.RecordSuccess(prompt, resp.Content)
	if n.metrics != nil {
		n.metrics.RecordProviderRequest(ctx, n.name, "ok")
		n.metrics.RecordTurn(ctx, string(cc.EntityExtraction.ActionType))
	}

	result := &TurnResult{
		Narrative: narrative,
		Context:   cc,
		Events:    progression.Detect(cc.EntityExtraction, narrative),
		Usage:     resp.Usage,
		Daily:     daily,
	}

	if n.recorder != nil && len(result.Events) > 0 {
		if err := n.recorder.RecordAll(ctx, result.Events); err != nil {
			result.RecordErr = err
			log.WarnContext(ctx, "narrator: journal write failed", "err", err)
			if n.metrics != nil {
				n.metrics.RecordStoreError(ctx, "journal")
			}
		}
	}
	if n.metrics != nil {
		for _, ev := range result.Events {
			n.metrics.RecordProgression(ctx, ev.Kind())
		}
	}

	playerEntry := campaignctx.FormatHistoryEntry(campaignctx.RolePlayer, action)
	dmEntry := campaignctx.FormatHistoryEntry(campaignctx.RoleDM, narrative)
	result.History = append(slices.Clone(req.History), playerEntry, dmEntry)
	result.MessageID = n.logMessages(ctx, log, action, narrative)

	if n.prompts != nil {
		n.prompts.Add(PromptRecord{
			MessageID: result.MessageID,
			Prompt:    prompt,
			Response:  narrative,
			Timestamp: n.now(),
		})
	}

	result.Duration = n.now().Sub(start)
	span.SetAttributes(
		attribute.String("action_type", string(cc.EntityExtraction.ActionType)),
		attribute.Int("events", len(result.Events)),
	)
	log.InfoContext(ctx, "narrator: turn complete",
		"action_type", cc.EntityExtraction.ActionType,
		"context_files", len(cc.ContextFiles),
		"events", len(result.Events),
		"daily_requests", daily.Requests,
		"daily_tokens", daily.Tokens,
	)
	return result, nil
}

// logMessages appends the turn to the chat log and returns the DM message
// id. Without a log, or when the write fails, the id is the current Unix
// millisecond.
func (n *Narrator) logMessages(ctx context.Context, log *slog.Logger, action, narrative string) int64 {
	fallback := n.now().UnixMilli()
	if n.messages == nil {
		return fallback
	}
	if _, err := n.messages.AddMessage(ctx, session.MessageUser, action); err != nil {
		log.WarnContext(ctx, "narrator: chat log write failed", "err", err)
		return fallback
	}
	msg, err := n.messages.AddMessage(ctx, session.MessageAssistant, narrative)
	if err != nil {
		log.WarnContext(ctx, "narrator: chat log write failed", "err", err)
		return fallback
	}
	return msg.ID
}

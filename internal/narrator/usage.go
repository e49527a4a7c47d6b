package narrator

import (
	"sync"
	"time"

	"github.com/MrWong99/dungeonmaster/pkg/provider/llm"
)

// DailyUsage is the running LLM usage for one calendar day. Token counts are
// estimates at [llm.CharsPerToken] characters per token.
type DailyUsage struct {
	Date     string `json:"date"`
	Requests int    `json:"requests"`
	Tokens   int    `json:"tokens"`
	Errors   int    `json:"errors"`
}

// UsageTracker counts requests, estimated tokens and errors per day. The
// counters reset when the local date changes. They are informational only;
// nothing is refused when they grow.
type UsageTracker struct {
	mu    sync.Mutex
	now   func() time.Time
	today DailyUsage
}

// NewUsageTracker creates a tracker. A nil now uses time.Now.
func NewUsageTracker(now func() time.Time) *UsageTracker {
	if now == nil {
		now = time.Now
	}
	return &UsageTracker{now: now}
}

// RecordSuccess counts one completed request with the given prompt and
// response text.
func (u *UsageTracker) RecordSuccess(prompt, response string) DailyUsage {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rollLocked()
	u.today.Requests++
	u.today.Tokens += llm.EstimateTokens(prompt) + llm.EstimateTokens(response)
	return u.today
}

// RecordError counts one failed request.
func (u *UsageTracker) RecordError() DailyUsage {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rollLocked()
	u.today.Errors++
	return u.today
}

// Snapshot returns today's counters.
func (u *UsageTracker) Snapshot() DailyUsage {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rollLocked()
	return u.today
}

func (u *UsageTracker) rollLocked() {
	if day := u.now().Format(time.DateOnly); u.today.Date != day {
		u.today = DailyUsage{Date: day}
	}
}

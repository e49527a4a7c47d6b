package narrator

import (
	"sync"
	"time"
)

// DefaultPromptLogSize is the number of exchanges a [PromptLog] keeps.
const DefaultPromptLogSize = 100

// PromptRecord is one prompt/response exchange, keyed by the id of the DM
// message it produced.
type PromptRecord struct {
	MessageID int64     `json:"messageId"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// PromptLog is a bounded in-memory log of recent prompts, used to inspect
// what the model was actually shown. The oldest record is evicted first.
type PromptLog struct {
	mu      sync.Mutex
	size    int
	order   []int64
	records map[int64]PromptRecord
}

// NewPromptLog creates a log holding up to size records. Non-positive sizes
// use [DefaultPromptLogSize].
func NewPromptLog(size int) *PromptLog {
	if size <= 0 {
		size = DefaultPromptLogSize
	}
	return &PromptLog{size: size, records: make(map[int64]PromptRecord, size)}
}

// Add stores rec, replacing any record with the same message id.
func (l *PromptLog) Add(rec PromptRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.records[rec.MessageID]; !exists {
		l.order = append(l.order, rec.MessageID)
	}
	l.records[rec.MessageID] = rec
	for len(l.order) > l.size {
		delete(l.records, l.order[0])
		l.order = l.order[1:]
	}
}

// Get returns the record for messageID.
func (l *PromptLog) Get(messageID int64) (PromptRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[messageID]
	return rec, ok
}

// Len returns the number of records held.
func (l *PromptLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

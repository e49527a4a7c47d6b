package contextfile

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/dungeonmaster/pkg/kv"
)

// ErrNotFound is returned by lookups that require an existing document.
var ErrNotFound = errors.New("contextfile: document not found")

// ErrInvalidDocument wraps [Validate] failures returned by mutating calls.
var ErrInvalidDocument = errors.New("contextfile: invalid document")

// Store is the keyed collection of context documents for one campaign.
//
// Every mutating method builds the next collection, persists it through the
// backend and only then makes it visible. A failed write leaves the
// in-memory state unchanged, so reads never observe data the backend does
// not have.
type Store struct {
	mu      sync.RWMutex
	docs    map[string]Document
	backend kv.Backend
	key     string
	now     func() time.Time
	log     *slog.Logger
}

// Option configures a [Store].
type Option func(*Store)

// WithKey overrides the backend key the collection is stored under.
// Defaults to [kv.KeyContextFiles].
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock replaces time.Now for lastUpdated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for recoverable storage problems.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore returns an empty Store persisting to backend. A nil backend is
// replaced with an in-memory one. Call [Store.Load] to read existing state.
func NewStore(backend kv.Backend, opts ...Option) *Store {
	if backend == nil {
		backend = kv.NewMemBackend(nil)
	}
	s := &Store{
		docs:    make(map[string]Document),
		backend: backend,
		key:     kv.KeyContextFiles,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// Get returns the document with id.
func (s *Store) Get(id string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return Document{}, false
	}
	return d.clone(), true
}

// All returns a snapshot of every document, ordered by id.
func (s *Store) All() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedDocs(s.docs)
}

// Len returns the number of documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// ─── Mutations ───────────────────────────────────────────────────────────────

// Put inserts or replaces doc by id. A zero LastUpdated is stamped with the
// current time; an empty Filename becomes "<id>.md".
func (s *Store) Put(ctx context.Context, doc Document) error {
	if err := Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return s.mutate(ctx, func(next map[string]Document, now time.Time) {
		next[doc.ID] = normalise(doc, now)
	})
}

// Delete removes the document with id. Deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, ok := s.Get(id); !ok {
		return nil
	}
	return s.mutate(ctx, func(next map[string]Document, _ time.Time) {
		delete(next, id)
	})
}

// Append concatenates text to the content of document id and refreshes its
// LastUpdated. It is a no-op when id is absent.
func (s *Store) Append(ctx context.Context, id, text string) error {
	return s.mutateIfPresent(ctx, id, func(doc *Document, now time.Time) {
		doc.Content += text
		doc.LastUpdated = now
	})
}

// ReplaceAll atomically replaces the whole collection with docs. Documents
// are validated up front; on any failure the store is left untouched. When
// two documents share an id the later one wins.
func (s *Store) ReplaceAll(ctx context.Context, docs []Document) error {
	for i, d := range docs {
		if err := Validate(d); err != nil {
			return fmt.Errorf("%w: documents[%d]: %w", ErrInvalidDocument, i, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	next := make(map[string]Document, len(docs))
	for _, d := range docs {
		next[d.ID] = normalise(d, now)
	}
	return s.commitLocked(ctx, next)
}

// SaveFile stores a document edited or uploaded by the player. The filename
// is the lower-cased name with whitespace runs replaced by "_", the tag set
// is the single docType, and the priority is [DefaultPriority].
func (s *Store) SaveFile(ctx context.Context, id, name, content, docType string, modified time.Time) error {
	doc := Document{
		ID:          id,
		Filename:    FilenameFor(name),
		Content:     content,
		LastUpdated: modified,
		Priority:    DefaultPriority,
	}
	if docType != "" {
		doc.Tags = []string{docType}
	}
	return s.Put(ctx, doc)
}

// CreateFile stores a generated document tagged "generated" with
// [DefaultPriority].
func (s *Store) CreateFile(ctx context.Context, id, filename, content string) error {
	return s.Put(ctx, Document{
		ID:       id,
		Filename: filename,
		Content:  content,
		Tags:     []string{"generated"},
		Priority: DefaultPriority,
	})
}

// ─── Persistence ─────────────────────────────────────────────────────────────

// Load replaces the in-memory collection with the persisted one. A missing
// key yields an empty store. An unreadable or corrupt blob is logged and
// also yields an empty store; Load never fails.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs = make(map[string]Document)

	raw, ok, err := s.backend.GetItem(ctx, s.key)
	if err != nil {
		s.log.Warn("contextfile: read backing store failed, starting empty", "key", s.key, "err", err)
		return
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}

	var records []record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.log.Warn("contextfile: backing store is corrupt, starting empty", "key", s.key, "err", err)
		return
	}
	now := s.now()
	for _, r := range records {
		d := r.document(now)
		if d.ID == "" {
			continue
		}
		s.docs[d.ID] = d
	}
	s.log.Debug("contextfile: loaded documents", "key", s.key, "count", len(s.docs))
}

// Save flushes the current collection to the backend.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(ctx, s.docs)
}

// Clear removes every document and deletes the backing key.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.RemoveItem(ctx, s.key); err != nil {
		return fmt.Errorf("contextfile: clear: %w", err)
	}
	s.docs = make(map[string]Document)
	return nil
}

// mutate applies fn to a copy of the collection and commits it.
func (s *Store) mutate(ctx context.Context, fn func(next map[string]Document, now time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := maps.Clone(s.docs)
	fn(next, s.now())
	return s.commitLocked(ctx, next)
}

// mutateIfPresent applies fn to a copy of document id and commits. It is a
// no-op when id is absent.
func (s *Store) mutateIfPresent(ctx context.Context, id string, fn func(doc *Document, now time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil
	}
	next := maps.Clone(s.docs)
	doc = doc.clone()
	fn(&doc, s.now())
	next[id] = doc
	return s.commitLocked(ctx, next)
}

// commitLocked persists next and swaps it in. s.mu must be held.
func (s *Store) commitLocked(ctx context.Context, next map[string]Document) error {
	data, err := json.Marshal(sortedDocs(next))
	if err != nil {
		return fmt.Errorf("contextfile: marshal: %w", err)
	}
	if err := s.backend.SetItem(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("contextfile: persist: %w", err)
	}
	s.docs = next
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func sortedDocs(m map[string]Document) []Document {
	out := make([]Document, 0, len(m))
	for _, d := range m {
		out = append(out, d.clone())
	}
	slices.SortFunc(out, func(a, b Document) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func normalise(d Document, now time.Time) Document {
	d = d.clone()
	if d.LastUpdated.IsZero() {
		d.LastUpdated = now
	}
	if d.Filename == "" {
		d.Filename = d.ID + ".md"
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return d
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// FilenameFor returns the filename [Store.SaveFile] gives a document named
// name.
func FilenameFor(name string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(name), "_") + ".md"
}

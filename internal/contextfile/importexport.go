package contextfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedImport is returned when an import payload does not carry a
// "contextFiles" array. The store is not modified.
var ErrMalformedImport = errors.New("contextfile: import payload has no contextFiles array")

// Bundle is the JSON export format accepted by [Store.Import].
type Bundle struct {
	ContextFiles []Document `json:"contextFiles"`
	ExportedAt   time.Time  `json:"exportedAt"`
}

// Import reads a JSON object with a "contextFiles" array from r and replaces
// the whole store with it. Records with a missing or unparsable lastUpdated
// are stamped with the current time. Ids are trimmed with inner whitespace
// runs turned into "_", and records left without an id get a random one.
// Blank tags are dropped. It returns the number of documents now in the
// store.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("contextfile: read import: %w", err)
	}
	docs, err := decodeImport(data, s.now())
	if err != nil {
		return 0, err
	}
	if err := s.ReplaceAll(ctx, docs); err != nil {
		return 0, err
	}
	s.log.Info("contextfile: imported documents", "count", len(docs))
	return s.Len(), nil
}

func decodeImport(data []byte, now time.Time) ([]Document, error) {
	var payload struct {
		ContextFiles json.RawMessage `json:"contextFiles"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedImport, err)
	}
	if len(payload.ContextFiles) == 0 || string(payload.ContextFiles) == "null" {
		return nil, ErrMalformedImport
	}
	var records []record
	if err := json.Unmarshal(payload.ContextFiles, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedImport, err)
	}

	docs := make([]Document, 0, len(records))
	for _, r := range records {
		r.ID = whitespaceRun.ReplaceAllString(strings.TrimSpace(r.ID), "_")
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.Tags = slices.DeleteFunc(r.Tags, func(tag string) bool { return strings.TrimSpace(tag) == "" })
		docs = append(docs, r.document(now))
	}
	return docs, nil
}

// Export writes every document as a [Bundle] to w.
func (s *Store) Export(w io.Writer) error {
	b := Bundle{ContextFiles: s.All(), ExportedAt: s.now().UTC()}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("contextfile: export: %w", err)
	}
	return nil
}

// ExportFile writes the markdown body of document id to w and returns its
// filename. Returns [ErrNotFound] when id is absent.
func (s *Store) ExportFile(w io.Writer, id string) (string, error) {
	doc, ok := s.Get(id)
	if !ok {
		return "", s.notFound(id)
	}
	if _, err := io.WriteString(w, doc.Content); err != nil {
		return "", fmt.Errorf("contextfile: export %q: %w", id, err)
	}
	return doc.Filename, nil
}

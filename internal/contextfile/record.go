package contextfile

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// record is the tolerant wire form of a [Document]. lastUpdated is kept raw
// so one bad timestamp never rejects the whole collection.
type record struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	Content     string          `json:"content"`
	Tags        []string        `json:"tags"`
	LastUpdated json.RawMessage `json:"lastUpdated"`
	Priority    float64         `json:"priority"`
}

// timestampLayouts are tried in order when lastUpdated is a string.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

func (r record) document(now time.Time) Document {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	filename := r.Filename
	if filename == "" && r.ID != "" {
		filename = r.ID + ".md"
	}
	return Document{
		ID:          r.ID,
		Filename:    filename,
		Content:     r.Content,
		Tags:        tags,
		LastUpdated: parseTimestamp(r.LastUpdated, now),
		Priority:    int(r.Priority),
	}
}

// parseTimestamp turns a raw JSON value into a time. Strings are parsed with
// [timestampLayouts], numbers are read as Unix milliseconds. Anything else,
// including a missing value, yields fallback.
func parseTimestamp(raw json.RawMessage, fallback time.Time) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fallback
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		// Date.toString output carries a trailing "(zone name)".
		s, _, _ = strings.Cut(strings.TrimSpace(s), " (")
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return fallback
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
		return time.UnixMilli(int64(ms)).UTC()
	}
	return fallback
}

package campaignctx

import "strings"

// UnknownLocation is reported when no location noun appears in recent
// history.
const UnknownLocation = "unknown location"

// locationWindow is the number of trailing history entries scanned by
// [InferLocation].
const locationWindow = 3

// Locations is the ordered list of nouns [InferLocation] recognises. The
// first noun found wins.
var Locations = []string{"tavern", "forest", "dungeon", "castle", "village", "cave", "mountain", "river"}

// Role identifies who produced a history entry.
type Role string

const (
	RolePlayer Role = "user"
	RoleDM     Role = "assistant"
)

// TrimHistory returns the last n entries of history in their original
// order. The result is never nil and never aliases history.
func TrimHistory(history []string, n int) []string {
	n = max(n, 0)
	if len(history) > n {
		history = history[len(history)-n:]
	}
	return append(make([]string, 0, len(history)), history...)
}

// InferLocation scans the last three history entries for a known location
// noun. Matching is a case-insensitive substring test.
func InferLocation(history []string) string {
	if len(history) > locationWindow {
		history = history[len(history)-locationWindow:]
	}
	recent := strings.ToLower(strings.Join(history, " "))
	for _, loc := range Locations {
		if strings.Contains(recent, loc) {
			return loc
		}
	}
	return UnknownLocation
}

// FormatHistoryEntry renders one turn for the history list: "Player: ..."
// for [RolePlayer], "DM: ..." otherwise.
func FormatHistoryEntry(role Role, content string) string {
	speaker := "DM"
	if role == RolePlayer {
		speaker = "Player"
	}
	return speaker + ": " + content
}

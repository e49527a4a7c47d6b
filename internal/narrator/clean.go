package narrator

import (
	"regexp"
	"strings"
)

var (
	asteriskBullet = regexp.MustCompile(`(?m)^\*\s+`)
	blankRuns      = regexp.MustCompile(`\n{3,}`)
)

// CleanResponse normalises raw model output for display: surrounding
// whitespace is trimmed, "* " list markers become "- " and runs of three or
// more newlines collapse to one blank line. Bold markup is left alone.
func CleanResponse(raw string) string {
	s := strings.TrimSpace(raw)
	s = asteriskBullet.ReplaceAllString(s, "- ")
	return blankRuns.ReplaceAllString(s, "\n\n")
}

package contextfile

import (
	"regexp"
	"strconv"
	"strings"
)

// CharacterFacts are the display facts derived from a character sheet.
// Every field is independently optional: the zero value of a field means
// "not found in the document".
type CharacterFacts struct {
	Name       string `json:"name,omitempty"       yaml:"name"`
	Class      string `json:"class,omitempty"      yaml:"class"`
	Level      int    `json:"level,omitempty"      yaml:"level"`
	Background string `json:"background,omitempty" yaml:"background"`
}

// Fallback fills every unknown field of f from other.
func (f CharacterFacts) Fallback(other CharacterFacts) CharacterFacts {
	if f.Name == "" {
		f.Name = other.Name
	}
	if f.Class == "" {
		f.Class = other.Class
	}
	if f.Level == 0 {
		f.Level = other.Level
	}
	if f.Background == "" {
		f.Background = other.Background
	}
	return f
}

// Display returns f with placeholder text for unknown fields, as shown in
// the character sidebar.
func (f CharacterFacts) Display() CharacterFacts {
	return f.Fallback(CharacterFacts{
		Name:       "Unknown Adventurer",
		Class:      "Unknown Class",
		Level:      1,
		Background: "Unknown Background",
	})
}

var (
	nameField       = regexp.MustCompile(`\*\*Name\*\*:[ \t]*(.+)`)
	classField      = regexp.MustCompile(`\*\*Class\*\*:[ \t]*(.+)`)
	levelField      = regexp.MustCompile(`\*\*Level\*\*:[ \t]*(\d+)`)
	backgroundField = regexp.MustCompile(`\*\*Background\*\*:[ \t]*(.+)`)
	sheetTitle      = regexp.MustCompile(`# (.+?) - Character Sheet`)
)

// Decorative glyphs that may trail the class and background values.
var (
	classGlyphs      = []string{"⚔", "🗡", "🏹", "📚"}
	backgroundGlyphs = []string{"🎭", "👤"}
)

// ExtractCharacterFacts parses the "**Field**: value" lines of a character
// sheet. A field whose line is missing or empty stays unknown; the others are
// still returned.
func ExtractCharacterFacts(content string) CharacterFacts {
	var f CharacterFacts
	if m := nameField.FindStringSubmatch(content); m != nil {
		f.Name = strings.TrimSpace(m[1])
	}
	if m := classField.FindStringSubmatch(content); m != nil {
		f.Class = cutAtGlyph(m[1], classGlyphs)
	}
	if m := levelField.FindStringSubmatch(content); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			f.Level = n
		}
	}
	if m := backgroundField.FindStringSubmatch(content); m != nil {
		f.Background = cutAtGlyph(m[1], backgroundGlyphs)
	}
	return f
}

func cutAtGlyph(v string, glyphs []string) string {
	for _, g := range glyphs {
		if i := strings.Index(v, g); i >= 0 {
			v = v[:i]
		}
	}
	return strings.TrimSpace(v)
}

// sheetName returns the name from a "# <name> - Character Sheet" title.
func sheetName(content string) string {
	if m := sheetTitle.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

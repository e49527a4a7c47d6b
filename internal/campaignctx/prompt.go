package campaignctx

import (
	"fmt"
	"strings"

	"github.com/MrWong99/dungeonmaster/internal/preferences"
)

// promptEvents is the number of history entries quoted in the prompt.
const promptEvents = 3

const dmPreamble = `You are an expert Dungeon Master running a D&D 5e campaign. You are a master storyteller who creates vivid, immersive narratives.

CRITICAL STYLE GUIDELINES:
- Write ONLY in second person ("You see...", "You hear...", "You feel...")
- NEVER use casual words like "okay", "alright", "well", or "so"
- NEVER break immersion with meta-commentary or parenthetical instructions
- Keep responses between 150-200 words
- END with 2-3 specific action suggestions followed by "What do you want to do?"

NARRATIVE REQUIREMENTS:
- Include rich sensory details (sight, sound, smell, touch, temperature)
- Create atmospheric tension and mood
- Provide clear environmental details that suggest possible actions
- Describe consequences of the player's actions immediately
- Maintain consistent world-building and tone

ENDING FORMAT REQUIREMENT:
Always end your response with action suggestions in this format:
"You could [action 1], [action 2], or [action 3]. What do you want to do?"

Examples of good action suggestions:
- "examine the ancient runes more closely"
- "listen carefully for the source of the sound"
- "check your equipment for useful items"
- "recall what you know about this type of creature"
- "move cautiously toward the flickering light"
- "search the area for hidden passages"`

const dmClosing = `Respond as the Dungeon Master, describing the immediate consequences and new scene that unfolds from this action. Focus on immersion and atmosphere, then provide specific action suggestions.`

// FormatSystemPrompt renders the Dungeon Master prompt for action.
//
// Character facts are printed as resolved in cc. Campaign files are embedded
// verbatim in selection order; the player profile and the extraction hint
// are omitted when empty. A nil cc renders with [DefaultCharacter] and no
// history.
func FormatSystemPrompt(action string, cc *CampaignContext) string {
	if cc == nil {
		cc = &CampaignContext{}
	}
	facts := cc.Facts().Fallback(DefaultCharacter)
	location := cc.CurrentLocation
	if location == "" || location == UnknownLocation {
		location = "Unknown"
	}

	var sb strings.Builder
	sb.WriteString(dmPreamble)

	// ── Character ────────────────────────────────────────────────────────────
	sb.WriteString("\n\nCHARACTER CONTEXT:\n")
	fmt.Fprintf(&sb, "Name: %s\n", facts.Name)
	fmt.Fprintf(&sb, "Class: %s\n", facts.Class)
	fmt.Fprintf(&sb, "Level: %d\n", facts.Level)
	fmt.Fprintf(&sb, "Background: %s\n", facts.Background)
	fmt.Fprintf(&sb, "Location: %s", location)

	// ── Player profile ───────────────────────────────────────────────────────
	if profile := formatPreferences(cc.PlayerPreferences); profile != "" {
		sb.WriteString("\n\nPLAYER PROFILE:\n")
		sb.WriteString(profile)
	}

	// ── Campaign files ───────────────────────────────────────────────────────
	if len(cc.ContextFiles) > 0 {
		sb.WriteString("\n\nCAMPAIGN FILES:")
		for _, d := range cc.ContextFiles {
			fmt.Fprintf(&sb, "\n\n--- %s ---\n%s", d.Filename, strings.TrimSpace(d.Content))
		}
	}

	// ── Recent events ────────────────────────────────────────────────────────
	sb.WriteString("\n\nRECENT CAMPAIGN EVENTS:\n")
	events := cc.RecentHistory
	if len(events) > promptEvents {
		events = events[len(events)-promptEvents:]
	}
	sb.WriteString(strings.Join(events, "\n"))

	// ── Extraction hint ──────────────────────────────────────────────────────
	if hint := formatExtraction(cc); hint != "" {
		sb.WriteString("\n\nACTION ANALYSIS:\n")
		sb.WriteString(hint)
	}

	fmt.Fprintf(&sb, "\n\nPLAYER'S CURRENT ACTION: %q\n\n", action)
	sb.WriteString(dmClosing)
	return sb.String()
}

func formatExtraction(cc *CampaignContext) string {
	ext := cc.EntityExtraction
	var lines []string
	if ext.ActionType != "" {
		lines = append(lines, "Action type: "+string(ext.ActionType))
	}
	if len(ext.Keywords) > 0 {
		lines = append(lines, "Keywords: "+strings.Join(ext.Keywords, ", "))
	}
	if len(ext.Entities) > 0 {
		lines = append(lines, "Entities: "+strings.Join(ext.Entities, ", "))
	}
	return strings.Join(lines, "\n")
}

// formatPreferences renders the non-empty preference fields, one per line.
func formatPreferences(p *preferences.PlayerPreferences) string {
	if p == nil {
		return ""
	}
	var lines []string
	list := func(label string, v []string) {
		if len(v) > 0 {
			lines = append(lines, label+": "+strings.Join(v, ", "))
		}
	}
	list("Favorite genres", p.FavoriteGenres)
	list("Favorite characters", p.FavoriteCharacters)
	if p.PreferredNarrativeStyle != "" {
		lines = append(lines, "Narrative style: "+p.PreferredNarrativeStyle)
	}
	if p.Age > 0 {
		lines = append(lines, fmt.Sprintf("Age: %d", p.Age))
	}
	list("Interests", p.Interests)
	list("Favorite books", p.FavoriteBooks)
	list("Favorite movies", p.FavoriteMovies)
	list("Favorite games", p.FavoriteGames)
	list("Personality traits", p.PersonalityTraits)
	list("Preferred themes", p.PreferredThemes)
	return strings.Join(lines, "\n")
}

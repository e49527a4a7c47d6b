package contextfile

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CollaborativeData is the outcome of the guided character-creation
// conversation.
type CollaborativeData struct {
	CharacterConcept  string                   `json:"characterConcept" yaml:"character_concept"`
	BackgroundDetails string                   `json:"backgroundDetails" yaml:"background_details"`
	WorldElements     string                   `json:"worldElements" yaml:"world_elements"`
	PlayerPreferences CollaborativePreferences `json:"playerPreferences" yaml:"player_preferences"`
}

// CollaborativePreferences are the preference answers captured during
// collaborative creation.
type CollaborativePreferences struct {
	FavoriteMedia           string   `json:"favoriteMedia,omitempty" yaml:"favorite_media,omitempty"`
	HeroType                string   `json:"heroType,omitempty" yaml:"hero_type,omitempty"`
	FavoriteGenres          []string `json:"favoriteGenres,omitempty" yaml:"favorite_genres,omitempty"`
	PreferredNarrativeStyle string   `json:"preferredNarrativeStyle,omitempty" yaml:"preferred_narrative_style,omitempty"`
	PreferredThemes         []string `json:"preferredThemes,omitempty" yaml:"preferred_themes,omitempty"`
	Age                     int      `json:"age,omitempty" yaml:"age,omitempty"`
	Background              string   `json:"background,omitempty" yaml:"background,omitempty"`
}

// InitializeFromCollaborativeData creates the character_sheet (from sheet),
// world_overview, campaign_notes, player_preferences and quest_log documents
// in one commit. All of them are tagged "generated".
func (s *Store) InitializeFromCollaborativeData(ctx context.Context, sheet string, data CollaborativeData) error {
	now := s.now()
	files := []struct{ id, content string }{
		{CharacterSheetID, sheet},
		{WorldOverviewID, worldOverviewMarkdown(data)},
		{CampaignNotesID, campaignNotesMarkdown(data, now)},
		{PlayerPreferencesID, preferencesMarkdown(data.PlayerPreferences)},
		{QuestLogID, initialQuestLogMarkdown(data)},
	}
	err := s.mutate(ctx, func(next map[string]Document, now time.Time) {
		for _, f := range files {
			next[f.id] = Document{
				ID:          f.id,
				Filename:    f.id + ".md",
				Content:     f.content,
				Tags:        []string{"generated"},
				LastUpdated: now,
				Priority:    DefaultPriority,
			}
		}
	})
	if err != nil {
		return fmt.Errorf("contextfile: initialize from collaborative data: %w", err)
	}
	s.log.Info("contextfile: initialized documents from collaborative data", "count", len(files))
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func joinOrDefault(vs []string, def string) string {
	if len(vs) == 0 {
		return def
	}
	return strings.Join(vs, ", ")
}

func worldOverviewMarkdown(d CollaborativeData) string {
	return fmt.Sprintf(`# World Overview

## Setting
%s

## Character Integration
The world has been shaped to accommodate your character's story:
- **Character Concept**: %s
- **Background Connection**: %s

## Key Locations
*To be developed as the adventure unfolds...*

## Important NPCs
*To be introduced during gameplay...*

## Ongoing Plots
*To be revealed through your character's journey...*

## Notes
This world was collaboratively created to match your character's story and preferences.
`, orDefault(d.WorldElements, "A rich fantasy world waiting to be explored."), d.CharacterConcept, d.BackgroundDetails)
}

func campaignNotesMarkdown(d CollaborativeData, now time.Time) string {
	return fmt.Sprintf(`# Campaign Notes

## Character Creation Summary
**Date**: %s
**Method**: Collaborative Creation

### Character Concept
%s

### Background Development
%s

### World Building
%s

## Adventure Hooks
*Generated based on collaborative creation process*

## Character Goals
*To be developed through gameplay*

## Campaign Themes
*Aligned with player preferences and character story*
`, now.Format("2006-01-02"), d.CharacterConcept, d.BackgroundDetails, d.WorldElements)
}

func preferencesMarkdown(p CollaborativePreferences) string {
	const unset = "Not specified"
	age := unset
	if p.Age > 0 {
		age = strconv.Itoa(p.Age)
	}
	return fmt.Sprintf(`# Player Preferences

## Story Preferences
- **Favorite Media**: %s
- **Hero Type**: %s
- **Favorite Genres**: %s

## Gameplay Preferences
- **Narrative Style**: %s
- **Themes**: %s

## Character Preferences
- **Age**: %s
- **Background**: %s

## Notes
These preferences were captured during the collaborative character creation process.
`,
		orDefault(p.FavoriteMedia, unset),
		orDefault(p.HeroType, unset),
		joinOrDefault(p.FavoriteGenres, unset),
		orDefault(p.PreferredNarrativeStyle, unset),
		joinOrDefault(p.PreferredThemes, unset),
		age,
		orDefault(p.Background, unset),
	)
}

func initialQuestLogMarkdown(d CollaborativeData) string {
	return fmt.Sprintf(`# Quest Log

## Active Quests

### The Journey Begins
**Status**: Active
**Description**: Your adventure starts here, driven by %s
**Objectives**:
- Explore your starting situation
- Make your first meaningful choice
- Begin pursuing your character's goals

**Background**: %s

## Completed Quests
*None yet - your story is just beginning!*

## Available Opportunities
*To be discovered through gameplay*

*Quest log will update automatically as your adventure progresses.*
`, orDefault(d.CharacterConcept, "your character's unique story"), orDefault(d.BackgroundDetails, "Your character's past shapes this journey"))
}

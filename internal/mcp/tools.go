package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/dungeonmaster/internal/campaignctx"
	"github.com/MrWong99/dungeonmaster/internal/contextfile"
	"github.com/MrWong99/dungeonmaster/internal/progression"
)

// Tool names.
const (
	ToolClassify     = "classify_action"
	ToolBuildContext = "build_context"
	ToolListFiles    = "list_context_files"
	ToolReadFile     = "read_context_file"
	ToolSaveFile     = "save_context_file"
	ToolRecord       = "record_progression"
	ToolRoll         = "roll_dice"
)

type toolset struct {
	deps Deps
}

func (t *toolset) register(s *mcpsdk.Server) {
	addTool(s, t, ToolClassify,
		"Classify a player action into combat, social, exploration, magic or general and extract keywords and entities.",
		t.classify)
	addTool(s, t, ToolBuildContext,
		"Assemble the campaign context and DM system prompt for a player action without calling the narrator.",
		t.buildContext)
	addTool(s, t, ToolListFiles,
		"List the campaign's context files with their tags and priorities.",
		t.listFiles)
	addTool(s, t, ToolReadFile,
		"Return the markdown body of one context file.",
		t.readFile)
	addTool(s, t, ToolSaveFile,
		"Create or replace a user-authored context file.",
		t.saveFile)
	addTool(s, t, ToolRecord,
		"Detect progression events from a player action and DM narrative and append them to the character journal.",
		t.record)
	addTool(s, t, ToolRoll,
		"Roll a dice expression such as 1d20, 2d6+3 or 4d8-1.",
		t.roll)
}

// addTool registers h under name, timing every call and counting it by
// outcome.
func addTool[In any](s *mcpsdk.Server, t *toolset, name, description string, h mcpsdk.ToolHandlerFor[In, any]) {
	mcpsdk.AddTool(s, &mcpsdk.Tool{Name: name, Description: description},
		func(ctx context.Context, req *mcpsdk.CallToolRequest, in In) (*mcpsdk.CallToolResult, any, error) {
			start := time.Now()
			res, out, err := h(ctx, req, in)
			status := "ok"
			if err != nil {
				status = "error"
				t.deps.Logger.Debug("mcp tool failed", "tool", name, "err", err)
			}
			t.deps.Metrics.RecordToolCall(ctx, name, status, time.Since(start))
			return res, out, err
		})
}

// ─── classify_action ─────────────────────────────────────────────────────────

// ActionInput carries a player action.
type ActionInput struct {
	Action string `json:"action" jsonschema:"the player's free-text action"`
}

func (t *toolset) classify(_ context.Context, _ *mcpsdk.CallToolRequest, in ActionInput) (*mcpsdk.CallToolResult, any, error) {
	return nil, t.deps.Classifier.Classify(in.Action), nil
}

// ─── build_context ───────────────────────────────────────────────────────────

// ContextInput is the input of build_context.
type ContextInput struct {
	Action  string   `json:"action" jsonschema:"the player's free-text action"`
	History []string `json:"history,omitempty" jsonschema:"prior turns, oldest first, as 'Player: ...' and 'DM: ...' lines"`
}

// ContextOutput is the output of build_context.
type ContextOutput struct {
	CharacterName   string   `json:"characterName"`
	CharacterClass  string   `json:"characterClass"`
	CharacterLevel  int      `json:"characterLevel"`
	CurrentLocation string   `json:"currentLocation"`
	ActionType      string   `json:"actionType"`
	Documents       []string `json:"documents"`
	SystemPrompt    string   `json:"systemPrompt"`
}

func (t *toolset) buildContext(ctx context.Context, _ *mcpsdk.CallToolRequest, in ContextInput) (*mcpsdk.CallToolResult, any, error) {
	action := strings.TrimSpace(in.Action)
	if action == "" {
		return nil, nil, fmt.Errorf("action must not be empty")
	}
	cc := t.deps.Assembler.Build(ctx, action, in.History, contextfile.CharacterFacts{}, nil)
	out := ContextOutput{
		CharacterName:   cc.CharacterName,
		CharacterClass:  cc.CharacterClass,
		CharacterLevel:  cc.CharacterLevel,
		CurrentLocation: cc.CurrentLocation,
		ActionType:      string(cc.EntityExtraction.ActionType),
		Documents:       make([]string, 0, len(cc.ContextFiles)),
		SystemPrompt:    campaignctx.FormatSystemPrompt(action, &cc),
	}
	for _, d := range cc.ContextFiles {
		out.Documents = append(out.Documents, d.ID)
	}
	return nil, out, nil
}

// ─── context files ───────────────────────────────────────────────────────────

// FileSummary describes one context file without its body.
type FileSummary struct {
	ID          string   `json:"id"`
	Filename    string   `json:"filename"`
	Tags        []string `json:"tags"`
	Priority    int      `json:"priority"`
	LastUpdated string   `json:"lastUpdated"`
}

// FileList is the output of list_context_files.
type FileList struct {
	Files []FileSummary `json:"files"`
}

func (t *toolset) listDocuments() FileList {
	docs := t.deps.Store.All()
	out := FileList{Files: make([]FileSummary, 0, len(docs))}
	for _, d := range docs {
		out.Files = append(out.Files, FileSummary{
			ID:          d.ID,
			Filename:    d.Filename,
			Tags:        d.Tags,
			Priority:    d.Priority,
			LastUpdated: d.LastUpdated.Format(time.RFC3339),
		})
	}
	return out
}

// NoInput is the input of tools without arguments.
type NoInput struct{}

func (t *toolset) listFiles(context.Context, *mcpsdk.CallToolRequest, NoInput) (*mcpsdk.CallToolResult, any, error) {
	return nil, t.listDocuments(), nil
}

// FileInput names a context file.
type FileInput struct {
	ID string `json:"id" jsonschema:"context file id, e.g. character_sheet"`
}

func (t *toolset) readFile(_ context.Context, _ *mcpsdk.CallToolRequest, in FileInput) (*mcpsdk.CallToolResult, any, error) {
	doc, ok := t.deps.Store.Get(in.ID)
	if !ok {
		return nil, nil, fmt.Errorf("context file %q not found", in.ID)
	}
	return &mcpsdk.CallToolResult{Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: doc.Content}}}, nil, nil
}

// SaveInput is the input of save_context_file.
type SaveInput struct {
	ID      string `json:"id,omitempty" jsonschema:"context file id; derived from name when omitted"`
	Name    string `json:"name" jsonschema:"display name of the file"`
	Content string `json:"content" jsonschema:"markdown body"`
	Type    string `json:"type,omitempty" jsonschema:"category tag such as notes, npc or location"`
}

// SaveOutput reports the stored file.
type SaveOutput struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

func (t *toolset) saveFile(ctx context.Context, _ *mcpsdk.CallToolRequest, in SaveInput) (*mcpsdk.CallToolResult, any, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, nil, fmt.Errorf("name must not be empty")
	}
	id := in.ID
	if id == "" {
		id = strings.TrimSuffix(contextfile.FilenameFor(in.Name), ".md")
	}
	typ := in.Type
	if typ == "" {
		typ = "notes"
	}
	if err := t.deps.Store.SaveFile(ctx, id, in.Name, in.Content, typ, time.Time{}); err != nil {
		return nil, nil, err
	}
	doc, _ := t.deps.Store.Get(id)
	t.deps.Logger.InfoContext(ctx, "mcp: context file saved", "id", id)
	return nil, SaveOutput{ID: id, Filename: doc.Filename}, nil
}

// ─── record_progression ──────────────────────────────────────────────────────

// RecordInput is the input of record_progression.
type RecordInput struct {
	Action    string `json:"action" jsonschema:"the player's action"`
	Narrative string `json:"narrative" jsonschema:"the DM's response to the action"`
}

// RecordOutput lists the journaled events.
type RecordOutput struct {
	Events []progression.Tagged `json:"events"`
}

func (t *toolset) record(ctx context.Context, _ *mcpsdk.CallToolRequest, in RecordInput) (*mcpsdk.CallToolResult, any, error) {
	events := progression.Detect(t.deps.Classifier.Classify(in.Action), in.Narrative)
	if err := t.deps.Recorder.RecordAll(ctx, events); err != nil {
		return nil, nil, err
	}
	return nil, RecordOutput{Events: progression.Tag(events)}, nil
}

// ─── roll_dice ───────────────────────────────────────────────────────────────

// RollInput is the input of roll_dice.
type RollInput struct {
	Expression string `json:"expression" jsonschema:"dice expression, e.g. 1d20, 2d6+3 or 4d8-1"`
}

func (t *toolset) roll(_ context.Context, _ *mcpsdk.CallToolRequest, in RollInput) (*mcpsdk.CallToolResult, any, error) {
	res, err := t.deps.Dice.Roll(in.Expression)
	if err != nil {
		return nil, nil, err
	}
	return nil, res, nil
}

func encode(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("mcp: encode: %w", err)
	}
	return string(b), nil
}

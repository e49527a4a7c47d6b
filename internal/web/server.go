// Package web serves the Dungeon Master JSON API used by the browser client.
//
// Every route lives under /api. Handlers decode a JSON body, call the
// narrator or one of the stores and encode the result; errors are reported
// with [http.Error] and a status derived from the sentinel errors of the
// underlying package.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MrWong99/dungeonmaster/internal/classify"
	"github.com/MrWong99/dungeonmaster/internal/contextfile"
	"github.com/MrWong99/dungeonmaster/internal/narrator"
	"github.com/MrWong99/dungeonmaster/internal/preferences"
	"github.com/MrWong99/dungeonmaster/internal/session"
)

// maxBodyBytes bounds every request body. Imports are the largest payloads.
const maxBodyBytes = 8 << 20

// Deps are the components behind the API. Store and Narrator are required.
type Deps struct {
	Store       *contextfile.Store
	Narrator    *narrator.Narrator
	Classifier  *classify.Classifier
	Preferences *preferences.Store
	Sessions    *session.Manager
	Campaigns   *session.Campaigns
	Logger      *slog.Logger
}

// Server implements the API routes.
type Server struct {
	deps Deps
	log  *slog.Logger
}

// NewServer validates deps and returns a [Server]. A nil Classifier defaults
// to [classify.Default]. Preferences, Sessions and Campaigns are optional;
// their routes answer 501 when absent.
func NewServer(deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("web: document store must not be nil")
	}
	if deps.Narrator == nil {
		return nil, errors.New("web: narrator must not be nil")
	}
	if deps.Classifier == nil {
		deps.Classifier = classify.Default()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Sessions != nil {
		// An expired session is cleared from inside Sessions.Load; the
		// document cache must follow or the next write restores old files.
		deps.Sessions.OnClear(deps.Store.Load)
	}
	return &Server{deps: deps, log: deps.Logger}, nil
}

// Register adds the API routes to mux:
//
//	POST   /api/turn                   narrate one player action
//	POST   /api/context                preview the context and prompt of an action
//	POST   /api/classify               classify an action
//	GET    /api/files                  list context files
//	POST   /api/files                  create a generated file
//	GET    /api/files/{id}             one context file
//	PUT    /api/files/{id}             save a player-edited file
//	DELETE /api/files/{id}             delete a file
//	GET    /api/files/{id}/export      markdown body as a download
//	POST   /api/files/{id}/upgrade     regenerate a character sheet
//	POST   /api/initialize             create the starter documents
//	POST   /api/import                 replace all files from a JSON bundle
//	GET    /api/export                 JSON bundle of all files
//	GET    /api/preferences            stored player preferences
//	PUT    /api/preferences            replace player preferences
//	DELETE /api/preferences            forget player preferences
//	GET    /api/session                current session
//	PUT    /api/session                save the session
//	DELETE /api/session                clear the session and all player data
//	GET    /api/campaigns              list campaigns
//	POST   /api/campaigns              create and activate a campaign
//	POST   /api/campaigns/import       import and activate an exported campaign
//	PATCH  /api/campaigns/{id}         rename a campaign
//	DELETE /api/campaigns/{id}         delete a campaign
//	POST   /api/campaigns/{id}/select  activate a campaign
//	GET    /api/usage                  today's narrator usage
//	GET    /api/prompts/{messageId}    prompt behind a DM message
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/turn", s.handleTurn)
	mux.HandleFunc("POST /api/context", s.handleContext)
	mux.HandleFunc("POST /api/classify", s.handleClassify)

	mux.HandleFunc("GET /api/files", s.handleListFiles)
	mux.HandleFunc("POST /api/files", s.handleCreateFile)
	mux.HandleFunc("GET /api/files/{id}", s.handleGetFile)
	mux.HandleFunc("PUT /api/files/{id}", s.handleSaveFile)
	mux.HandleFunc("DELETE /api/files/{id}", s.handleDeleteFile)
	mux.HandleFunc("GET /api/files/{id}/export", s.handleExportFile)
	mux.HandleFunc("POST /api/files/{id}/upgrade", s.handleUpgradeFile)
	mux.HandleFunc("POST /api/initialize", s.handleInitialize)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/export", s.handleExport)

	mux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	mux.HandleFunc("PUT /api/preferences", s.handleSetPreferences)
	mux.HandleFunc("DELETE /api/preferences", s.handleClearPreferences)
	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("PUT /api/session", s.handleSaveSession)
	mux.HandleFunc("DELETE /api/session", s.handleClearSession)
	mux.HandleFunc("GET /api/campaigns", s.handleListCampaigns)
	mux.HandleFunc("POST /api/campaigns", s.handleCreateCampaign)
	mux.HandleFunc("POST /api/campaigns/import", s.handleImportCampaign)
	mux.HandleFunc("PATCH /api/campaigns/{id}", s.handleRenameCampaign)
	mux.HandleFunc("DELETE /api/campaigns/{id}", s.handleDeleteCampaign)
	mux.HandleFunc("POST /api/campaigns/{id}/select", s.handleSelectCampaign)

	mux.HandleFunc("GET /api/usage", s.handleUsage)
	mux.HandleFunc("GET /api/prompts/{messageId}", s.handlePrompt)
}

// Handler returns a mux serving only the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

// ── helpers ──

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, "invalid request body: "+err.Error(), status)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail maps err to a status code, logs server-side failures and writes the
// error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "web: request failed", "op", op, "err", err)
	}
	http.Error(w, fmt.Sprintf("%s: %v", op, err), status)
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, contextfile.ErrNotFound),
		errors.Is(err, session.ErrCampaignNotFound),
		errors.Is(err, session.ErrNoActiveCampaign),
		errors.Is(err, preferences.ErrNotCollected):
		return http.StatusNotFound
	case errors.Is(err, contextfile.ErrInvalidDocument),
		errors.Is(err, contextfile.ErrMalformedImport),
		errors.Is(err, session.ErrMalformedBundle),
		errors.Is(err, narrator.ErrEmptyAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func notConfigured(w http.ResponseWriter, what string) {
	http.Error(w, what+" not configured", http.StatusNotImplemented)
}

package web

import (
	"net/http"
	"strings"

	"github.com/MrWong99/dungeonmaster/internal/preferences"
	"github.com/MrWong99/dungeonmaster/internal/session"
)

// ─── Preferences ─────────────────────────────────────────────────────────────

// handleGetPreferences handles GET /api/preferences. Uncollected preferences
// answer 404.
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preferences == nil {
		notConfigured(w, "preferences")
		return
	}
	p, err := s.deps.Preferences.Get(r.Context())
	if err != nil {
		s.fail(w, r, "get preferences", err)
		return
	}
	if p == nil {
		s.fail(w, r, "get preferences", preferences.ErrNotCollected)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleSetPreferences handles PUT /api/preferences.
func (s *Server) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preferences == nil {
		notConfigured(w, "preferences")
		return
	}
	var p preferences.PlayerPreferences
	if !decodeBody(w, r, &p) {
		return
	}
	if err := s.deps.Preferences.Set(r.Context(), p); err != nil {
		s.fail(w, r, "set preferences", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleClearPreferences handles DELETE /api/preferences.
func (s *Server) handleClearPreferences(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preferences == nil {
		notConfigured(w, "preferences")
		return
	}
	if err := s.deps.Preferences.Clear(r.Context()); err != nil {
		s.fail(w, r, "clear preferences", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Session ─────────────────────────────────────────────────────────────────

// handleGetSession handles GET /api/session. A missing or expired session
// answers 404.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		notConfigured(w, "sessions")
		return
	}
	d, err := s.deps.Sessions.Load(r.Context())
	if err != nil {
		s.fail(w, r, "load session", err)
		return
	}
	if d == nil {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSaveSession handles PUT /api/session.
func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		notConfigured(w, "sessions")
		return
	}
	var d session.Data
	if !decodeBody(w, r, &d) {
		return
	}
	saved, err := s.deps.Sessions.Save(r.Context(), d)
	if err != nil {
		s.fail(w, r, "save session", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleClearSession handles DELETE /api/session. The document store reloads
// through the OnClear hook installed by [NewServer].
func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		notConfigured(w, "sessions")
		return
	}
	if err := s.deps.Sessions.Clear(r.Context()); err != nil {
		s.fail(w, r, "clear session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Campaigns ───────────────────────────────────────────────────────────────

// handleListCampaigns handles GET /api/campaigns.
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Campaigns == nil {
		notConfigured(w, "campaigns")
		return
	}
	l, err := s.deps.Campaigns.List(r.Context())
	if err != nil {
		s.fail(w, r, "list campaigns", err)
		return
	}
	if l.Campaigns == nil {
		l.Campaigns = []session.Campaign{}
	}
	writeJSON(w, http.StatusOK, l)
}

type campaignRequest struct {
	Name string `json:"name"`
}

// handleCreateCampaign handles POST /api/campaigns. An empty name gets a
// generated one.
func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	if s.deps.Campaigns == nil {
		notConfigured(w, "campaigns")
		return
	}
	var req campaignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := s.deps.Campaigns.Create(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		s.fail(w, r, "create campaign", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// campaignImportResponse mirrors [session.Bundle] with the stored campaign.
type campaignImportResponse struct {
	Campaign          session.Campaign               `json:"campaign"`
	PlayerPreferences *preferences.PlayerPreferences `json:"playerPreferences"`
}

// handleImportCampaign handles POST /api/campaigns/import. The imported
// campaign becomes active; bundled preferences replace the stored ones.
func (s *Server) handleImportCampaign(w http.ResponseWriter, r *http.Request) {
	if s.deps.Campaigns == nil {
		notConfigured(w, "campaigns")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	b, err := session.DecodeBundle(r.Body)
	if err != nil {
		s.fail(w, r, "import campaign", err)
		return
	}
	c, err := s.deps.Campaigns.Import(r.Context(), *b.Campaign)
	if err != nil {
		s.fail(w, r, "import campaign", err)
		return
	}
	if b.PlayerPreferences != nil && s.deps.Preferences != nil {
		if err := s.deps.Preferences.Set(r.Context(), *b.PlayerPreferences); err != nil {
			s.fail(w, r, "import campaign preferences", err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, campaignImportResponse{Campaign: c, PlayerPreferences: b.PlayerPreferences})
}

// handleRenameCampaign handles PATCH /api/campaigns/{id}.
func (s *Server) handleRenameCampaign(w http.ResponseWriter, r *http.Request) {
	if s.deps.Campaigns == nil {
		notConfigured(w, "campaigns")
		return
	}
	var req campaignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Campaigns.Rename(r.Context(), id, name); err != nil {
		s.fail(w, r, "rename campaign", err)
		return
	}
	c, err := s.deps.Campaigns.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, "rename campaign", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleDeleteCampaign handles DELETE /api/campaigns/{id}.
func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if s.deps.Campaigns == nil {
		notConfigured(w, "campaigns")
		return
	}
	if err := s.deps.Campaigns.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete campaign", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSelectCampaign handles POST /api/campaigns/{id}/select.
func (s *Server) handleSelectCampaign(w http.ResponseWriter, r *http.Request) {
	if s.deps.Campaigns == nil {
		notConfigured(w, "campaigns")
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Campaigns.Select(r.Context(), id); err != nil {
		s.fail(w, r, "select campaign", err)
		return
	}
	c, err := s.deps.Campaigns.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, "select campaign", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

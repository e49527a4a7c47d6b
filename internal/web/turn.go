package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrWong99/dungeonmaster/internal/campaignctx"
	"github.com/MrWong99/dungeonmaster/internal/narrator"
	"github.com/MrWong99/dungeonmaster/internal/progression"
)

// turnResponse extends the narrator result with the journaled events in
// their tagged wire form.
type turnResponse struct {
	*narrator.TurnResult
	Events      []progression.Tagged `json:"events"`
	RecordError string               `json:"recordError,omitempty"`
}

// handleTurn handles POST /api/turn. The body is a [narrator.TurnRequest].
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req narrator.TurnRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.deps.Narrator.Turn(r.Context(), req)
	if errors.Is(err, narrator.ErrEmptyAction) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "web: turn failed", "err", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	out := turnResponse{TurnResult: res, Events: progression.Tag(res.Events)}
	if res.RecordErr != nil {
		out.RecordError = res.RecordErr.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

// contextResponse is the body returned by POST /api/context.
type contextResponse struct {
	Context      campaignctx.CampaignContext `json:"context"`
	SystemPrompt string                      `json:"systemPrompt"`
}

// handleContext handles POST /api/context.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req narrator.TurnRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		http.Error(w, narrator.ErrEmptyAction.Error(), http.StatusBadRequest)
		return
	}
	cc, prompt := s.deps.Narrator.Preview(r.Context(), req)
	writeJSON(w, http.StatusOK, contextResponse{Context: cc, SystemPrompt: prompt})
}

type classifyRequest struct {
	Action string `json:"action"`
}

// handleClassify handles POST /api/classify. An empty action classifies as
// general with no keywords.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Classifier.Classify(req.Action))
}

// handleUsage handles GET /api/usage.
func (s *Server) handleUsage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Narrator.Usage().Snapshot())
}

// handlePrompt handles GET /api/prompts/{messageId}.
func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	log := s.deps.Narrator.Prompts()
	if log == nil {
		notConfigured(w, "prompt log")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("messageId"), 10, 64)
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}
	rec, ok := log.Get(id)
	if !ok {
		http.Error(w, "prompt not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

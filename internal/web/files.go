package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/dungeonmaster/internal/contextfile"
)

// ─── Context files ───────────────────────────────────────────────────────────

type fileListResponse struct {
	Files []contextfile.Document `json:"files"`
}

// handleListFiles handles GET /api/files. ?tag= narrows the list to
// documents carrying that tag.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	docs := s.deps.Store.All()
	if tag := r.URL.Query().Get("tag"); tag != "" {
		kept := docs[:0]
		for _, d := range docs {
			if d.HasAnyTag(tag) {
				kept = append(kept, d)
			}
		}
		docs = kept
	}
	writeJSON(w, http.StatusOK, fileListResponse{Files: docs})
}

// handleGetFile handles GET /api/files/{id}.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, ok := s.deps.Store.Get(id)
	if !ok {
		msg := "context file not found"
		if hint, found := s.deps.Store.Suggest(id); found {
			msg += fmt.Sprintf("; did you mean %q?", hint)
		}
		http.Error(w, msg, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// saveFileRequest is the body of PUT /api/files/{id}.
type saveFileRequest struct {
	Name         string    `json:"name"`
	Content      string    `json:"content"`
	Type         string    `json:"type"`
	LastModified time.Time `json:"lastModified"`
}

// handleSaveFile handles PUT /api/files/{id}.
func (s *Server) handleSaveFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req saveFileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if err := s.deps.Store.SaveFile(r.Context(), id, req.Name, req.Content, req.Type, req.LastModified); err != nil {
		s.fail(w, r, "save file", err)
		return
	}
	doc, _ := s.deps.Store.Get(id)
	writeJSON(w, http.StatusOK, doc)
}

// createFileRequest is the body of POST /api/files.
type createFileRequest struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// handleCreateFile handles POST /api/files. The file is stored as generated
// content.
func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req createFileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if err := s.deps.Store.CreateFile(r.Context(), req.ID, req.Filename, req.Content); err != nil {
		s.fail(w, r, "create file", err)
		return
	}
	doc, _ := s.deps.Store.Get(req.ID)
	writeJSON(w, http.StatusCreated, doc)
}

// handleDeleteFile handles DELETE /api/files/{id}. Deleting an absent file
// succeeds.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete file", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportFile handles GET /api/files/{id}/export.
func (s *Server) handleExportFile(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := s.deps.Store.ExportFile(&buf, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "export file", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = buf.WriteTo(w)
}

// handleUpgradeFile handles POST /api/files/{id}/upgrade.
func (s *Server) handleUpgradeFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.deps.Store.Get(id); !ok {
		http.Error(w, "context file not found", http.StatusNotFound)
		return
	}
	if err := s.deps.Store.UpgradeCharacterSheetFormat(r.Context(), id); err != nil {
		s.fail(w, r, "upgrade file", err)
		return
	}
	doc, _ := s.deps.Store.Get(id)
	writeJSON(w, http.StatusOK, doc)
}

// initializeRequest is the body of POST /api/initialize. When Collaborative
// is set the documents are built from it and CharacterSheet; otherwise the
// default documents are created for Name, Class and Background.
type initializeRequest struct {
	Name           string                         `json:"name"`
	Class          string                         `json:"class"`
	Background     string                         `json:"background"`
	CharacterSheet string                         `json:"characterSheet"`
	Collaborative  *contextfile.CollaborativeData `json:"collaborativeData"`
}

// handleInitialize handles POST /api/initialize.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var err error
	if req.Collaborative != nil {
		if strings.TrimSpace(req.CharacterSheet) == "" {
			http.Error(w, "characterSheet is required with collaborativeData", http.StatusBadRequest)
			return
		}
		err = s.deps.Store.InitializeFromCollaborativeData(r.Context(), req.CharacterSheet, *req.Collaborative)
	} else {
		if strings.TrimSpace(req.Name) == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		err = s.deps.Store.InitializeDefaults(r.Context(), req.Name, req.Class, req.Background)
	}
	if err != nil {
		s.fail(w, r, "initialize", err)
		return
	}
	writeJSON(w, http.StatusOK, fileListResponse{Files: s.deps.Store.All()})
}

type importResponse struct {
	Count int `json:"count"`
}

// handleImport handles POST /api/import. The body is an export bundle.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	n, err := s.deps.Store.Import(r.Context(), r.Body)
	if err != nil {
		s.fail(w, r, "import", err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Count: n})
}

// handleExport handles GET /api/export.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.deps.Store.Export(&buf); err != nil {
		s.fail(w, r, "export", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="context-files.json"`)
	_, _ = buf.WriteTo(w)
}

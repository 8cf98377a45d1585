// ABOUTME: Repository handlers: list, create, update, delete, refresh and stats
// ABOUTME: Refreshing simulates a source scan by adding to the source count

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/freegoat/manga-admin/internal/store"
)

// Sources added per refresh.
const (
	refreshSourceGain    = 5
	refreshAllSourceGain = 3
)

type createRepositoryRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (s *Server) handleListRepositories(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListRepositories(r.Context())
	if err != nil {
		s.storeFailure(w, "list repositories", err, "")
		return
	}
	if list == nil {
		list = []*store.Repository{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"repositories": list})
}

// handleCreateRepository adds an active repository with no sources yet.
func (s *Server) handleCreateRepository(w http.ResponseWriter, r *http.Request) {
	var req createRepositoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	repo := &store.Repository{
		Name:        req.Name,
		URL:         req.URL,
		Description: req.Description,
		IsActive:    true,
		SourceCount: 0,
		LastUpdated: time.Now().UTC(),
	}
	if err := repo.Validate(); err != nil {
		writeEnvelope(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := s.store.CreateRepository(r.Context(), repo); err != nil {
		s.storeFailure(w, "create repository", err, "")
		return
	}

	s.audit(r, "", store.AuditCreateRepository, "repository", repo.ID, map[string]any{"name": repo.Name})
	writeEnvelope(w, http.StatusCreated, "Repository added successfully", repo)
}

func (s *Server) handleUpdateRepository(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var upd store.RepositoryUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	repo, err := s.store.UpdateRepository(r.Context(), id, upd)
	if err != nil {
		s.storeFailure(w, "update repository", err, "Repository not found")
		return
	}
	s.audit(r, "", store.AuditUpdateRepository, "repository", id, nil)
	writeEnvelope(w, http.StatusOK, "Repository updated successfully", repo)
}

func (s *Server) handleDeleteRepository(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteRepository(r.Context(), id); err != nil {
		s.storeFailure(w, "delete repository", err, "Repository not found")
		return
	}
	s.audit(r, "", store.AuditDeleteRepository, "repository", id, nil)
	writeEnvelope(w, http.StatusOK, "Repository deleted successfully", nil)
}

func (s *Server) handleRefreshRepository(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	repo, err := s.store.RefreshRepository(r.Context(), id, refreshSourceGain)
	if err != nil {
		s.storeFailure(w, "refresh repository", err, "Repository not found")
		return
	}
	s.audit(r, "", store.AuditRefreshRepository, "repository", id, nil)
	writeEnvelope(w, http.StatusOK, "Repository refreshed successfully", repo)
}

func (s *Server) handleRefreshAllRepositories(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.RefreshActiveRepositories(r.Context(), refreshAllSourceGain)
	if err != nil {
		s.storeFailure(w, "refresh repositories", err, "")
		return
	}
	s.audit(r, "", store.AuditRefreshRepository, "repository", "*", map[string]any{"refreshed": n})
	writeEnvelope(w, http.StatusOK, "All repositories refreshed successfully", map[string]int{"refreshed": n})
}

func (s *Server) handleRepositoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.RepositoryStats(r.Context())
	if err != nil {
		s.storeFailure(w, "repository stats", err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

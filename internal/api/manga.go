// ABOUTME: Manga catalogue handlers: list, create, update and delete
// ABOUTME: New titles default to ongoing when no status is given

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/freegoat/manga-admin/internal/store"
)

func (s *Server) handleListManga(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListManga(r.Context())
	if err != nil {
		s.storeFailure(w, "list manga", err, "")
		return
	}
	if list == nil {
		list = []*store.Manga{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"manga": list})
}

func (s *Server) handleCreateManga(w http.ResponseWriter, r *http.Request) {
	var m store.Manga
	if err := decodeJSON(w, r, &m); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	m.ID = ""
	if m.Status == "" {
		m.Status = store.MangaOngoing
	}
	if err := m.Validate(); err != nil {
		writeEnvelope(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := s.store.CreateManga(r.Context(), &m); err != nil {
		s.storeFailure(w, "create manga", err, "")
		return
	}
	s.audit(r, "", store.AuditCreateManga, "manga", m.ID, map[string]any{"title": m.Title})
	writeEnvelope(w, http.StatusCreated, "Manga added successfully", &m)
}

func (s *Server) handleUpdateManga(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var upd store.MangaUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	m, err := s.store.UpdateManga(r.Context(), id, upd)
	if err != nil {
		s.storeFailure(w, "update manga", err, "Manga not found")
		return
	}
	s.audit(r, "", store.AuditUpdateManga, "manga", id, nil)
	writeEnvelope(w, http.StatusOK, "Manga updated successfully", m)
}

func (s *Server) handleDeleteManga(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteManga(r.Context(), id); err != nil {
		s.storeFailure(w, "delete manga", err, "Manga not found")
		return
	}
	s.audit(r, "", store.AuditDeleteManga, "manga", id, nil)
	writeEnvelope(w, http.StatusOK, "Manga deleted successfully", nil)
}

// ABOUTME: Site user handlers: list, create, update and delete
// ABOUTME: Role and status changes are validated before they are persisted

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/freegoat/manga-admin/internal/store"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.storeFailure(w, "list users", err, "")
		return
	}
	if list == nil {
		list = []*store.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": list})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var u store.User
	if err := decodeJSON(w, r, &u); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	u.ID = ""
	u.ApplyDefaults(time.Now())
	if err := u.Validate(); err != nil {
		writeEnvelope(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := s.store.CreateUser(r.Context(), &u); err != nil {
		s.storeFailure(w, "create user", err, "")
		return
	}
	s.audit(r, "", store.AuditCreateUser, "user", u.ID, map[string]any{"username": u.Username})
	writeEnvelope(w, http.StatusCreated, "User created successfully", &u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var upd store.UserUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	u, err := s.store.UpdateUser(r.Context(), id, upd)
	if err != nil {
		s.storeFailure(w, "update user", err, "User not found")
		return
	}
	s.audit(r, "", store.AuditUpdateUser, "user", id, nil)
	writeEnvelope(w, http.StatusOK, "User updated successfully", u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		s.storeFailure(w, "delete user", err, "User not found")
		return
	}
	s.audit(r, "", store.AuditDeleteUser, "user", id, nil)
	writeEnvelope(w, http.StatusOK, "User deleted successfully", nil)
}

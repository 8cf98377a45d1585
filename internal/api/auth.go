// ABOUTME: Login, logout and session check handlers
// ABOUTME: Verifies credentials, issues the signed session cookie and reports the current identity

package api

import (
	"errors"
	"net/http"

	"github.com/freegoat/manga-admin/internal/auth"
	"github.com/freegoat/manga-admin/internal/store"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userRef struct {
	Username string `json:"username"`
}

type loginResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	User    *userRef `json:"user,omitempty"`
}

type checkResponse struct {
	Authenticated bool     `json:"authenticated"`
	User          *userRef `json:"user,omitempty"`
}

// handleLogin handles POST /api/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	id, err := s.verifier.Verify(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logger.Warn("login failed", "username", req.Username, "remote_addr", r.RemoteAddr)
		writeEnvelope(w, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}
	if err != nil {
		s.logger.Error("credential verification failed", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	if err := s.startSession(w, r, id.Username); err != nil {
		s.logger.Error("failed to start session", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, "Failed to create session", nil)
		return
	}

	s.logger.Info("admin logged in", "username", id.Username)
	s.audit(r, id.Username, store.AuditLogin, "session", "", map[string]any{"method": "password"})
	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: "Logged in successfully",
		User:    &userRef{Username: id.Username},
	})
}

// startSession replaces any session named by the request cookie with a fresh one.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, username string) error {
	cookies := s.gate.Cookies()
	sessions := s.gate.Sessions()

	if old, err := cookies.Token(r); err == nil {
		_ = sessions.Invalidate(r.Context(), old)
	}

	session, err := sessions.Create(r.Context(), username)
	if err != nil {
		return err
	}
	return cookies.Set(w, r, session.Token, session.ExpiresAt)
}

// handleLogout handles POST /api/auth/logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, err := s.gate.Cookies().Token(r); err == nil {
		if err := s.gate.Sessions().Invalidate(r.Context(), token); err != nil {
			s.logger.Error("failed to invalidate session", "error", err)
		}
	}
	s.gate.Cookies().Clear(w)
	writeEnvelope(w, http.StatusOK, "Logged out successfully", nil)
}

// handleCheck handles GET /api/auth/check.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	a, err := s.gate.Authenticate(r)
	if err != nil {
		writeJSON(w, http.StatusOK, checkResponse{Authenticated: false})
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{
		Authenticated: true,
		User:          &userRef{Username: a.Username},
	})
}

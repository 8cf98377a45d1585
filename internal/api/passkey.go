// ABOUTME: Passkey (WebAuthn) registration and discoverable login for dashboard admins
// ABOUTME: Challenges live in a short-lived in-memory store; login issues the normal session cookie

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/freegoat/manga-admin/internal/auth"
	"github.com/freegoat/manga-admin/internal/store"
)

// challengeTTL bounds how long a begin/finish pair may take.
const challengeTTL = 5 * time.Minute

// webAuthnUser adapts an AdminUser to webauthn.User.
type webAuthnUser struct {
	user  *store.AdminUser
	creds []*store.WebAuthnCredential
}

func (u *webAuthnUser) WebAuthnID() []byte   { return []byte(u.user.ID) }
func (u *webAuthnUser) WebAuthnName() string { return u.user.Username }

func (u *webAuthnUser) WebAuthnDisplayName() string {
	if u.user.DisplayName != "" {
		return u.user.DisplayName
	}
	return u.user.Username
}

func (u *webAuthnUser) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, len(u.creds))
	for i, c := range u.creds {
		creds[i] = webauthn.Credential{
			ID:              c.CredentialID,
			PublicKey:       c.PublicKey,
			AttestationType: c.AttestationType,
			Authenticator:   webauthn.Authenticator{SignCount: c.SignCount},
		}
		if c.Transports != "" {
			var transports []protocol.AuthenticatorTransport
			_ = json.Unmarshal([]byte(c.Transports), &transports)
			creds[i].Transport = transports
		}
	}
	return creds
}

type pendingChallenge struct {
	session   *webauthn.SessionData
	userID    string
	expiresAt time.Time
}

// webAuthnSessionStore holds in-flight ceremonies keyed by an opaque token.
type webAuthnSessionStore struct {
	mu      sync.Mutex
	pending map[string]*pendingChallenge
	cancel  context.CancelFunc
	now     func() time.Time
}

func newWebAuthnSessionStore() *webAuthnSessionStore {
	ctx, cancel := context.WithCancel(context.Background())
	st := &webAuthnSessionStore{
		pending: make(map[string]*pendingChallenge),
		cancel:  cancel,
		now:     time.Now,
	}
	go st.cleanupLoop(ctx)
	return st
}

func (st *webAuthnSessionStore) Close() { st.cancel() }

func (st *webAuthnSessionStore) Put(session *webauthn.SessionData, userID string) (string, error) {
	token, err := auth.NewToken()
	if err != nil {
		return "", err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.pending[token] = &pendingChallenge{
		session:   session,
		userID:    userID,
		expiresAt: st.now().Add(challengeTTL),
	}
	return token, nil
}

// Take returns and forgets the challenge. A token can be used once.
func (st *webAuthnSessionStore) Take(token string) (*webauthn.SessionData, string, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	p, ok := st.pending[token]
	if !ok {
		return nil, "", false
	}
	delete(st.pending, token)
	if st.now().After(p.expiresAt) {
		return nil, "", false
	}
	return p.session, p.userID, true
}

func (st *webAuthnSessionStore) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.mu.Lock()
			now := st.now()
			for k, p := range st.pending {
				if now.After(p.expiresAt) {
					delete(st.pending, k)
				}
			}
			st.mu.Unlock()
		}
	}
}

// deriveWebAuthnConfig extracts the relying party ID and origins from a base URL.
// Localhost defaults apply when baseURL is empty or unparseable.
func deriveWebAuthnConfig(baseURL string) (rpID string, rpOrigins []string) {
	rpID = "localhost"
	rpOrigins = []string{"http://localhost", "https://localhost", "http://localhost:8080"}

	parsed, err := url.Parse(baseURL)
	if baseURL == "" || err != nil || parsed.Hostname() == "" {
		return rpID, rpOrigins
	}

	rpID = parsed.Hostname()
	rpOrigins = []string{parsed.Scheme + "://" + parsed.Host}
	if parsed.Scheme == "https" {
		rpOrigins = append(rpOrigins, "http://"+parsed.Host)
	} else {
		rpOrigins = append(rpOrigins, "https://"+parsed.Host)
	}
	return rpID, rpOrigins
}

func (s *Server) initWebAuthn(baseURL string) error {
	rpID, rpOrigins := deriveWebAuthnConfig(baseURL)
	w, err := webauthn.New(&webauthn.Config{
		RPDisplayName: "Manga Admin",
		RPID:          rpID,
		RPOrigins:     rpOrigins,
	})
	if err != nil {
		return fmt.Errorf("configuring webauthn: %w", err)
	}
	s.webauthn = w
	s.webauthnSessions = newWebAuthnSessionStore()
	return nil
}

type ceremonyRequest struct {
	SessionToken string          `json:"sessionToken"`
	Response     json.RawMessage `json:"response"`
}

func (s *Server) passkeysEnabled(w http.ResponseWriter) bool {
	if s.webauthn == nil {
		writeEnvelope(w, http.StatusServiceUnavailable, "Passkeys are not enabled", nil)
		return false
	}
	return true
}

// currentAdmin returns the admin_users row for the caller, creating a
// passkey-only row when the caller logged in with the configured static identity.
func (s *Server) currentAdmin(ctx context.Context) (*store.AdminUser, error) {
	username := auth.Actor(ctx)
	user, err := s.admins.GetAdminUserByUsername(ctx, username)
	if errors.Is(err, store.ErrAdminUserNotFound) {
		user = &store.AdminUser{Username: username}
		if err := s.admins.CreateAdminUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	return user, err
}

// handlePasskeyRegisterBegin handles POST /api/auth/passkey/register/begin.
func (s *Server) handlePasskeyRegisterBegin(w http.ResponseWriter, r *http.Request) {
	if !s.passkeysEnabled(w) {
		return
	}
	user, err := s.currentAdmin(r.Context())
	if err != nil {
		s.logger.Error("failed to resolve admin user", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, "Failed to start registration", nil)
		return
	}

	existing, err := s.admins.GetWebAuthnCredentialsByUser(r.Context(), user.ID)
	if err != nil {
		s.logger.Warn("failed to load existing credentials", "error", err)
	}

	options, session, err := s.webauthn.BeginRegistration(&webAuthnUser{user: user, creds: existing})
	if err != nil {
		s.logger.Error("failed to begin registration", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, "Failed to start registration", nil)
		return
	}
	token, err := s.webauthnSessions.Put(session, user.ID)
	if err != nil {
		writeEnvelope(w, http.StatusInternalServerError, "Failed to start registration", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"options": options, "sessionToken": token})
}

// handlePasskeyRegisterFinish handles POST /api/auth/passkey/register/finish.
func (s *Server) handlePasskeyRegisterFinish(w http.ResponseWriter, r *http.Request) {
	if !s.passkeysEnabled(w) {
		return
	}
	var req ceremonyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	user, err := s.currentAdmin(r.Context())
	if err != nil {
		s.logger.Error("failed to resolve admin user", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, "Failed to save passkey", nil)
		return
	}

	session, userID, ok := s.webauthnSessions.Take(req.SessionToken)
	if !ok || userID != user.ID {
		writeEnvelope(w, http.StatusBadRequest, "Invalid or expired registration", nil)
		return
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(req.Response))
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid passkey response", nil)
		return
	}

	existing, _ := s.admins.GetWebAuthnCredentialsByUser(r.Context(), user.ID)
	credential, err := s.webauthn.CreateCredential(&webAuthnUser{user: user, creds: existing}, *session, parsed)
	if err != nil {
		s.logger.Warn("passkey verification failed", "error", err)
		writeEnvelope(w, http.StatusBadRequest, "Failed to verify passkey", nil)
		return
	}

	transports, _ := json.Marshal(credential.Transport)
	err = s.admins.CreateWebAuthnCredential(r.Context(), &store.WebAuthnCredential{
		UserID:          user.ID,
		CredentialID:    credential.ID,
		PublicKey:       credential.PublicKey,
		AttestationType: credential.AttestationType,
		Transports:      string(transports),
		SignCount:       credential.Authenticator.SignCount,
	})
	if err != nil {
		s.logger.Error("failed to store credential", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, "Failed to save passkey", nil)
		return
	}

	s.logger.Info("passkey registered", "username", user.Username)
	writeEnvelope(w, http.StatusOK, "Passkey registered", nil)
}

// handlePasskeyLoginBegin handles POST /api/auth/passkey/login/begin.
func (s *Server) handlePasskeyLoginBegin(w http.ResponseWriter, _ *http.Request) {
	if !s.passkeysEnabled(w) {
		return
	}
	options, session, err := s.webauthn.BeginDiscoverableLogin()
	if err != nil {
		s.logger.Error("failed to begin passkey login", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, "Failed to start login", nil)
		return
	}
	token, err := s.webauthnSessions.Put(session, "")
	if err != nil {
		writeEnvelope(w, http.StatusInternalServerError, "Failed to start login", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"options": options, "sessionToken": token})
}

// makeCredentialFinder resolves the discoverable credential's owner.
func makeCredentialFinder(waUser *webAuthnUser, userID string) webauthn.DiscoverableUserHandler {
	return func(_, userHandle []byte) (webauthn.User, error) {
		if len(userHandle) > 0 && string(userHandle) != userID {
			return nil, errors.New("user handle mismatch")
		}
		return waUser, nil
	}
}

// handlePasskeyLoginFinish handles POST /api/auth/passkey/login/finish.
func (s *Server) handlePasskeyLoginFinish(w http.ResponseWriter, r *http.Request) {
	if !s.passkeysEnabled(w) {
		return
	}
	var req ceremonyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}
	session, _, ok := s.webauthnSessions.Take(req.SessionToken)
	if !ok {
		writeEnvelope(w, http.StatusBadRequest, "Invalid or expired login", nil)
		return
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.Response))
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid passkey response", nil)
		return
	}

	stored, err := s.admins.GetWebAuthnCredentialByCredentialID(r.Context(), parsed.RawID)
	if errors.Is(err, store.ErrNotFound) {
		writeEnvelope(w, http.StatusUnauthorized, "Unknown passkey", nil)
		return
	}
	if err != nil {
		s.logger.Error("failed to look up credential", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}
	user, err := s.admins.GetAdminUser(r.Context(), stored.UserID)
	if err != nil {
		s.logger.Error("failed to load passkey owner", "error", err)
		writeEnvelope(w, http.StatusUnauthorized, "Unknown passkey", nil)
		return
	}

	all, _ := s.admins.GetWebAuthnCredentialsByUser(r.Context(), user.ID)
	waUser := &webAuthnUser{user: user, creds: all}
	credential, err := s.webauthn.ValidateDiscoverableLogin(makeCredentialFinder(waUser, user.ID), *session, parsed)
	if err != nil {
		s.logger.Warn("passkey login rejected", "username", user.Username, "error", err)
		writeEnvelope(w, http.StatusUnauthorized, "Passkey authentication failed", nil)
		return
	}

	if err := s.admins.UpdateWebAuthnCredentialSignCount(r.Context(), stored.ID, credential.Authenticator.SignCount); err != nil {
		s.logger.Warn("failed to update sign count", "error", err)
	}
	if err := s.startSession(w, r, user.Username); err != nil {
		s.logger.Error("failed to start session", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, "Failed to create session", nil)
		return
	}

	s.logger.Info("admin logged in with passkey", "username", user.Username)
	s.audit(r, user.Username, store.AuditLogin, "session", "", map[string]any{"method": "passkey"})
	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: "Logged in successfully",
		User:    &userRef{Username: user.Username},
	})
}

// ABOUTME: API server wiring: dependencies, route table, 404/405 hooks and middleware chain
// ABOUTME: Routes live on a gorilla/mux subrouter; chi middleware and rs/cors wrap the whole handler

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/freegoat/manga-admin/internal/auth"
	"github.com/freegoat/manga-admin/internal/dedupe"
	"github.com/freegoat/manga-admin/internal/notify"
	"github.com/freegoat/manga-admin/internal/store"
)

// Options are the dependencies of a Server.
type Options struct {
	Store    store.Store
	Verifier auth.Verifier
	Gate     *auth.Gate

	// Admins enables passkey login. Leave nil to disable the passkey routes.
	Admins store.AdminStore
	// BaseURL is the public URL of the dashboard, used as the WebAuthn relying party.
	BaseURL string

	// Notifier delivers sent notifications. Defaults to a LogSink.
	Notifier notify.Dispatcher
	// Idempotency replays mutations carrying an Idempotency-Key. Optional.
	Idempotency *dedupe.Cache

	// CORSOrigins lists origins allowed to call the API with credentials.
	// Empty allows every origin, which browsers refuse for credentialed requests.
	CORSOrigins []string
	// BackupDir receives snapshots from the backup quick action.
	BackupDir string
	// WebUI serves everything outside /api and /health. Optional.
	WebUI http.Handler
}

// Server handles the dashboard API.
type Server struct {
	store    store.Store
	verifier auth.Verifier
	gate     *auth.Gate
	notifier notify.Dispatcher
	idem     *dedupe.Cache

	admins           store.AdminStore
	webauthn         *webauthn.WebAuthn
	webauthnSessions *webAuthnSessionStore

	corsOrigins []string
	backupDir   string
	webUI       http.Handler

	logger *slog.Logger
}

// New creates a Server. Store, Verifier and Gate are required.
func New(opts Options) (*Server, error) {
	if opts.Store == nil || opts.Verifier == nil || opts.Gate == nil {
		return nil, errors.New("api: store, verifier and gate are required")
	}

	s := &Server{
		store:       opts.Store,
		verifier:    opts.Verifier,
		gate:        opts.Gate,
		notifier:    opts.Notifier,
		idem:        opts.Idempotency,
		admins:      opts.Admins,
		corsOrigins: opts.CORSOrigins,
		backupDir:   opts.BackupDir,
		webUI:       opts.WebUI,
		logger:      slog.Default().With("component", "api"),
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogSink()
	}
	if s.backupDir == "" {
		s.backupDir = filepath.Join(".", "backups")
	}

	if s.admins != nil {
		if err := s.initWebAuthn(opts.BaseURL); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close stops background goroutines owned by the server.
func (s *Server) Close() {
	if s.webauthnSessions != nil {
		s.webauthnSessions.Close()
	}
}

// Handler returns the complete HTTP handler including middleware.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	})

	var h http.Handler = s.Router()
	h = middleware.Recoverer(h)
	h = accessLog(s.logger)(h)
	h = middleware.RealIP(h)
	h = middleware.RequestID(h)
	return c.Handler(h)
}

// Router builds the route table without the outer middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = http.HandlerFunc(notFound)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	// auth
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/auth/check", s.handleCheck).Methods(http.MethodGet)
	api.HandleFunc("/auth/passkey/login/begin", s.handlePasskeyLoginBegin).Methods(http.MethodPost)
	api.HandleFunc("/auth/passkey/login/finish", s.handlePasskeyLoginFinish).Methods(http.MethodPost)
	api.Handle("/auth/passkey/register/begin", s.protect(s.handlePasskeyRegisterBegin)).Methods(http.MethodPost)
	api.Handle("/auth/passkey/register/finish", s.protect(s.handlePasskeyRegisterFinish)).Methods(http.MethodPost)

	// notifications
	api.Handle("/notifications", s.protect(s.handleListNotifications)).Methods(http.MethodGet)
	api.Handle("/notifications/send", s.mutation(s.handleSendNotification)).Methods(http.MethodPost)
	api.Handle("/notifications/stats", s.protect(s.handleNotificationStats)).Methods(http.MethodGet)
	reserve(api, "/notifications/send", http.MethodPost)
	reserve(api, "/notifications/stats", http.MethodGet)
	api.Handle("/notifications/{id}", s.protect(s.handleDeleteNotification)).Methods(http.MethodDelete)

	// repositories
	api.Handle("/repositories", s.protect(s.handleListRepositories)).Methods(http.MethodGet)
	api.Handle("/repositories", s.mutation(s.handleCreateRepository)).Methods(http.MethodPost)
	api.Handle("/repositories/stats", s.protect(s.handleRepositoryStats)).Methods(http.MethodGet)
	api.Handle("/repositories/refresh-all", s.mutation(s.handleRefreshAllRepositories)).Methods(http.MethodPost)
	reserve(api, "/repositories/stats", http.MethodGet)
	reserve(api, "/repositories/refresh-all", http.MethodPost)
	api.Handle("/repositories/{id}", s.protect(s.handleUpdateRepository)).Methods(http.MethodPut)
	api.Handle("/repositories/{id}", s.protect(s.handleDeleteRepository)).Methods(http.MethodDelete)
	api.Handle("/repositories/{id}/refresh", s.mutation(s.handleRefreshRepository)).Methods(http.MethodPost)

	// users
	api.Handle("/users", s.protect(s.handleListUsers)).Methods(http.MethodGet)
	api.Handle("/users", s.mutation(s.handleCreateUser)).Methods(http.MethodPost)
	api.Handle("/users/{id}", s.protect(s.handleUpdateUser)).Methods(http.MethodPut)
	api.Handle("/users/{id}", s.protect(s.handleDeleteUser)).Methods(http.MethodDelete)

	// manga
	api.Handle("/manga", s.protect(s.handleListManga)).Methods(http.MethodGet)
	api.Handle("/manga", s.mutation(s.handleCreateManga)).Methods(http.MethodPost)
	api.Handle("/manga/{id}", s.protect(s.handleUpdateManga)).Methods(http.MethodPut)
	api.Handle("/manga/{id}", s.protect(s.handleDeleteManga)).Methods(http.MethodDelete)

	api.Handle("/statistics", s.protect(s.handleStatistics)).Methods(http.MethodGet)
	api.Handle("/settings", s.protect(s.handleGetSettings)).Methods(http.MethodGet)
	api.Handle("/settings", s.protect(s.handleUpdateSettings)).Methods(http.MethodPut)
	api.Handle("/audit", s.protect(s.handleListAudit)).Methods(http.MethodGet)
	api.Handle("/quick-actions/{action}", s.mutation(s.handleQuickAction)).Methods(http.MethodPost)

	if s.webUI != nil {
		r.PathPrefix("/").Handler(s.webUI).Methods(http.MethodGet, http.MethodHead)
	}
	return r
}

// reserve answers 405 on a fixed path for every method it does not serve, so
// those requests never fall through to a sibling /{id} route.
func reserve(r *mux.Router, path string, allowed ...string) {
	allow := strings.Join(allowed, ", ")
	r.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Allow", allow)
		methodNotAllowed(w, req)
	})
}

// protect requires an authenticated caller.
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	return s.gate.Require(h)
}

// mutation requires an authenticated caller and honours Idempotency-Key.
func (s *Server) mutation(h http.HandlerFunc) http.Handler {
	return s.gate.Require(s.idempotent(h))
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

// handleReady reports whether the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		sendJSONError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	sendJSONError(w, http.StatusNotFound, "Not found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	sendJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

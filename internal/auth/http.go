// ABOUTME: HTTP gate that authenticates requests by session cookie or bearer token
// ABOUTME: Adds AuthContext to the request context and rejects anonymous callers with 401

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Gate resolves who is calling. Bearer tokens are only consulted when a
// TokenVerifier is configured.
type Gate struct {
	sessions SessionStore
	cookies  *CookieCodec
	tokens   TokenVerifier
	logger   *slog.Logger
}

// NewGate creates a gate. tokens may be nil to disable bearer auth.
func NewGate(sessions SessionStore, cookies *CookieCodec, tokens TokenVerifier) *Gate {
	return &Gate{
		sessions: sessions,
		cookies:  cookies,
		tokens:   tokens,
		logger:   slog.Default().With("component", "auth"),
	}
}

// Sessions exposes the underlying session store for login and logout.
func (g *Gate) Sessions() SessionStore { return g.sessions }

// Cookies exposes the cookie codec for login and logout.
func (g *Gate) Cookies() *CookieCodec { return g.cookies }

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Authenticate returns the caller's AuthContext or ErrUnauthorized.
// A bearer header, when present, takes precedence over the cookie.
func (g *Gate) Authenticate(r *http.Request) (*AuthContext, error) {
	if header := r.Header.Get("Authorization"); header != "" && g.tokens != nil {
		token, errMsg := extractBearerToken(header)
		if errMsg != "" {
			return nil, ErrUnauthorized
		}
		username, err := g.tokens.Verify(token)
		if err != nil {
			g.logger.Debug("bearer token rejected", "error", err)
			return nil, ErrUnauthorized
		}
		return &AuthContext{Username: username, Method: MethodToken}, nil
	}

	token, err := g.cookies.Token(r)
	if err != nil {
		return nil, ErrUnauthorized
	}
	session, err := g.sessions.Get(r.Context(), token)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			g.logger.Error("session lookup failed", "error", err)
		}
		return nil, ErrUnauthorized
	}
	if !session.Authenticated {
		return nil, ErrUnauthorized
	}
	return &AuthContext{Username: session.Username, Method: MethodSession, Session: session}, nil
}

// Require wraps next so it only runs for authenticated callers.
// Anonymous callers get 401 {"success":false,"message":...} and nothing else.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx, err := g.Authenticate(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": "Authentication required",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
	})
}

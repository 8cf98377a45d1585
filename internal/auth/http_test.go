// ABOUTME: Tests for the HTTP gate and signed session cookie
// ABOUTME: Covers cookie round trips, tampering, bearer tokens and 401 responses

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(t *testing.T, withTokens bool) (*Gate, *MemorySessions) {
	t.Helper()
	sessions := NewMemorySessions(time.Hour)
	t.Cleanup(sessions.Close)

	var tokens TokenVerifier
	if withTokens {
		tokens = newTestJWTVerifier(t)
	}
	return NewGate(sessions, NewCookieCodec([]byte("0123456789abcdef0123456789abcdef"), nil), tokens), sessions
}

// sessionCookie logs "admin" in and returns the cookie a browser would send back.
func sessionCookie(t *testing.T, g *Gate) *http.Cookie {
	t.Helper()
	s, err := g.Sessions().Create(t.Context(), "admin")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, g.Cookies().Set(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil), s.Token, s.ExpiresAt))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func protectedHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := FromContext(r.Context())
		require.NotNil(t, a)
		_, _ = w.Write([]byte(a.Username + ":" + a.Method))
	})
}

// --- cookie ---

func TestCookieCodec_RoundTrip(t *testing.T) {
	g, _ := newTestGate(t, false)
	cookie := sessionCookie(t, g)

	assert.Equal(t, SessionCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check", nil)
	req.AddCookie(cookie)
	token, err := g.Cookies().Token(req)
	require.NoError(t, err)
	assert.Len(t, token, 64)
}

func TestCookieCodec_Tampered(t *testing.T) {
	g, _ := newTestGate(t, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged-token"})
	_, err := g.Cookies().Token(req)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = g.Cookies().Token(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCookieCodec_Clear(t *testing.T) {
	codec := NewCookieCodec(nil, nil)
	rec := httptest.NewRecorder()
	codec.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

// --- gate ---

func TestGate_RequireAnonymous(t *testing.T) {
	g, _ := newTestGate(t, true)

	rec := httptest.NewRecorder()
	g.Require(protectedHandler(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])
}

func TestGate_RequireWithSession(t *testing.T) {
	g, _ := newTestGate(t, false)
	cookie := sessionCookie(t, g)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	g.Require(protectedHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin:session", rec.Body.String())
}

func TestGate_InvalidatedSession(t *testing.T) {
	g, _ := newTestGate(t, false)
	cookie := sessionCookie(t, g)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	token, err := g.Cookies().Token(req)
	require.NoError(t, err)
	require.NoError(t, g.Sessions().Invalidate(t.Context(), token))

	rec := httptest.NewRecorder()
	g.Require(protectedHandler(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGate_BearerToken(t *testing.T) {
	g, _ := newTestGate(t, true)
	token, err := newTestJWTVerifier(t).Generate("cli-admin", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/manga", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	g.Require(protectedHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cli-admin:token", rec.Body.String())
}

func TestGate_BearerRejected(t *testing.T) {
	g, _ := newTestGate(t, true)

	for _, header := range []string{"Bearer nonsense", "Basic YWRtaW46YWRtaW4=", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/api/manga", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		g.Require(protectedHandler(t)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestGate_BearerIgnoredWithoutVerifier(t *testing.T) {
	g, _ := newTestGate(t, false)
	cookie := sessionCookie(t, g)

	req := httptest.NewRequest(http.MethodGet, "/api/manga", nil)
	req.Header.Set("Authorization", "Bearer anything")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	g.Require(protectedHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "falls back to the session cookie")
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		token   string
		wantErr bool
	}{
		{"", "", true},
		{"Token abc", "", true},
		{"Bearer ", "", true},
		{"Bearer abc", "abc", false},
	}
	for _, tt := range tests {
		token, msg := extractBearerToken(tt.header)
		assert.Equal(t, tt.token, token)
		assert.Equal(t, tt.wantErr, msg != "", tt.header)
	}
}

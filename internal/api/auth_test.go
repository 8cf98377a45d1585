// ABOUTME: Tests for login, logout, check and the protection of every resource route
// ABOUTME: Follows the browser flow with a cookie jar and the scripted flow with bearer tokens

package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freegoat/manga-admin/internal/auth"
	"github.com/freegoat/manga-admin/internal/store"
)

var protectedRoutes = []struct{ method, path string }{
	{http.MethodGet, "/api/notifications"},
	{http.MethodPost, "/api/notifications/send"},
	{http.MethodGet, "/api/notifications/stats"},
	{http.MethodDelete, "/api/notifications/1"},
	{http.MethodGet, "/api/repositories"},
	{http.MethodPost, "/api/repositories"},
	{http.MethodGet, "/api/repositories/stats"},
	{http.MethodPost, "/api/repositories/refresh-all"},
	{http.MethodPut, "/api/repositories/1"},
	{http.MethodDelete, "/api/repositories/1"},
	{http.MethodPost, "/api/repositories/1/refresh"},
	{http.MethodGet, "/api/users"},
	{http.MethodPost, "/api/users"},
	{http.MethodPut, "/api/users/1"},
	{http.MethodDelete, "/api/users/1"},
	{http.MethodGet, "/api/manga"},
	{http.MethodPost, "/api/manga"},
	{http.MethodPut, "/api/manga/1"},
	{http.MethodDelete, "/api/manga/1"},
	{http.MethodGet, "/api/statistics"},
	{http.MethodGet, "/api/settings"},
	{http.MethodPut, "/api/settings"},
	{http.MethodGet, "/api/audit"},
	{http.MethodPost, "/api/quick-actions/clear-cache"},
	{http.MethodPost, "/api/auth/passkey/register/begin"},
}

func TestLoginScenario(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	resp := ts.do(t, c, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "admin"})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, true, resp.Body["success"])
	assert.Equal(t, map[string]any{"username": "admin"}, resp.Body["user"])

	resp = ts.do(t, c, http.MethodGet, "/api/auth/check", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, true, resp.Body["authenticated"])
	assert.Equal(t, map[string]any{"username": "admin"}, resp.Body["user"])
}

func TestLoginRejected(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	resp := ts.do(t, c, http.MethodPost, "/api/auth/login", map[string]string{"username": "x", "password": "y"})
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, false, resp.Body["success"])
	assert.NotEmpty(t, resp.Body["message"])

	resp = ts.do(t, c, http.MethodGet, "/api/auth/check", nil)
	assert.Equal(t, false, resp.Body["authenticated"])
	assert.Nil(t, resp.Body["user"])
}

func TestLoginRequiresExactCredentials(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"padded username", "  admin\t", "admin"},
		{"trailing space in username", "admin ", "admin"},
		{"username case", "Admin", "admin"},
		{"password case", "admin", "ADMIN"},
		{"trailing space in password", "admin", "admin "},
		{"leading space in password", "admin", " admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t)
			resp := ts.do(t, c, http.MethodPost, "/api/auth/login",
				map[string]string{"username": tt.username, "password": tt.password})
			assert.Equal(t, http.StatusUnauthorized, resp.Status)
			assert.Equal(t, false, resp.Body["success"])

			check := ts.do(t, c, http.MethodGet, "/api/auth/check", nil)
			assert.Equal(t, false, check.Body["authenticated"])
		})
	}
}

func TestLoginMalformedBody(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	for _, body := range []string{"", "{", "[]"} {
		resp := ts.do(t, c, http.MethodPost, "/api/auth/login", body)
		assert.Equal(t, http.StatusBadRequest, resp.Status, "%q", body)
		assert.Equal(t, false, resp.Body["success"])
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	ts.login(t, c)

	resp := ts.do(t, c, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, resp.Status)

	// keep the cookie to replay it after logout
	u := mustParseURL(t, ts.URL)
	cookies := c.Jar.Cookies(u)
	require.NotEmpty(t, cookies)

	resp = ts.do(t, c, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, true, resp.Body["success"])

	resp = ts.do(t, c, http.MethodGet, "/api/auth/check", nil)
	assert.Equal(t, false, resp.Body["authenticated"])

	replay := newClient(t)
	replay.Jar.SetCookies(u, cookies)
	resp = ts.do(t, replay, http.MethodGet, "/api/notifications", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status, "old cookie must not work after logout")
}

func TestLogoutWhenAnonymous(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, newClient(t), http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestLoginRotatesSession(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	u := mustParseURL(t, ts.URL)

	ts.login(t, c)
	first := c.Jar.Cookies(u)

	ts.login(t, c)

	stale := newClient(t)
	stale.Jar.SetCookies(u, first)
	resp := ts.do(t, stale, http.MethodGet, "/api/auth/check", nil)
	assert.Equal(t, false, resp.Body["authenticated"])
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	for _, rt := range protectedRoutes {
		resp := ts.do(t, c, rt.method, rt.path, map[string]string{})
		assert.Equal(t, http.StatusUnauthorized, resp.Status, "%s %s", rt.method, rt.path)
		assert.Equal(t, false, resp.Body["success"], "%s %s", rt.method, rt.path)
		assert.Nil(t, resp.Body["data"], "%s %s", rt.method, rt.path)
	}
}

func TestBearerToken(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)

	v, err := auth.NewJWTVerifier([]byte("api-test-secret-0123456789abcdef0123"))
	require.NoError(t, err)
	token, err := v.Generate("script", time.Hour)
	require.NoError(t, err)

	resp := ts.do(t, c, http.MethodGet, "/api/users", nil, "Authorization", "Bearer "+token)
	assert.Len(t, list(t, resp, "users"), 2)

	resp = ts.do(t, c, http.MethodGet, "/api/auth/check", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, true, resp.Body["authenticated"])

	resp = ts.do(t, c, http.MethodGet, "/api/users", nil, "Authorization", "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestLoginIsAudited(t *testing.T) {
	ts := newTestServer(t)
	c := newClient(t)
	ts.login(t, c)

	entries, err := ts.store.ListAuditLog(t.Context(), store.AuditFilter{Action: store.AuditLogin})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "admin", entries[0].Actor)
}

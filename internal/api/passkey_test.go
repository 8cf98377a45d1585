// ABOUTME: Tests for the passkey ceremony endpoints and relying party derivation
// ABOUTME: Full attestation needs an authenticator, so finish paths are tested for rejection

package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveWebAuthnConfig(t *testing.T) {
	tests := []struct {
		baseURL    string
		wantRPID   string
		wantOrigin string
	}{
		{"", "localhost", "http://localhost"},
		{"::not a url", "localhost", "http://localhost"},
		{"https://admin.example.com", "admin.example.com", "https://admin.example.com"},
		{"http://box.tail1234.ts.net:8080/", "box.tail1234.ts.net", "http://box.tail1234.ts.net:8080"},
	}
	for _, tt := range tests {
		rpID, origins := deriveWebAuthnConfig(tt.baseURL)
		assert.Equal(t, tt.wantRPID, rpID, tt.baseURL)
		assert.Contains(t, origins, tt.wantOrigin, tt.baseURL)
	}
}

func TestPasskeyLoginBegin(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, newClient(t), http.MethodPost, "/api/auth/passkey/login/begin", nil)
	require.Equal(t, http.StatusOK, resp.Status, resp.Raw)
	assert.NotEmpty(t, resp.Body["sessionToken"])

	options, ok := resp.Body["options"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, options, "publicKey")
}

func TestPasskeyRegisterBegin_CreatesAdminRow(t *testing.T) {
	ts, c := authed(t)

	_, err := ts.store.GetAdminUserByUsername(t.Context(), "admin")
	require.Error(t, err, "static admin has no row before registering a passkey")

	resp := ts.do(t, c, http.MethodPost, "/api/auth/passkey/register/begin", nil)
	require.Equal(t, http.StatusOK, resp.Status, resp.Raw)
	assert.NotEmpty(t, resp.Body["sessionToken"])

	user, err := ts.store.GetAdminUserByUsername(t.Context(), "admin")
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash)

	// a second ceremony reuses the row
	resp = ts.do(t, c, http.MethodPost, "/api/auth/passkey/register/begin", nil)
	require.Equal(t, http.StatusOK, resp.Status)
	n, err := ts.store.CountAdminUsers(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPasskeyFinish_RejectsBadInput(t *testing.T) {
	ts, c := authed(t)

	resp := ts.do(t, c, http.MethodPost, "/api/auth/passkey/login/finish", map[string]string{"sessionToken": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	resp = ts.do(t, c, http.MethodPost, "/api/auth/passkey/register/finish", map[string]string{"sessionToken": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	// valid token, garbage attestation
	begin := ts.do(t, c, http.MethodPost, "/api/auth/passkey/register/begin", nil)
	require.Equal(t, http.StatusOK, begin.Status)
	resp = ts.do(t, c, http.MethodPost, "/api/auth/passkey/register/finish", map[string]any{
		"sessionToken": begin.Body["sessionToken"],
		"response":     map[string]string{"id": "x"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	// the token was consumed by the failed attempt
	resp = ts.do(t, c, http.MethodPost, "/api/auth/passkey/register/finish", map[string]any{
		"sessionToken": begin.Body["sessionToken"],
	})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestPasskeysDisabledWithoutAdminStore(t *testing.T) {
	ts := newTestServer(t)
	ts.api.webauthn = nil

	resp := ts.do(t, newClient(t), http.MethodPost, "/api/auth/passkey/login/begin", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
}

func TestWebAuthnSessionStore(t *testing.T) {
	st := newWebAuthnSessionStore()
	defer st.Close()

	now := time.Now()
	st.now = func() time.Time { return now }

	token, err := st.Put(&webauthn.SessionData{Challenge: "c1"}, "user-1")
	require.NoError(t, err)

	session, userID, ok := st.Take(token)
	require.True(t, ok)
	assert.Equal(t, "c1", session.Challenge)
	assert.Equal(t, "user-1", userID)

	_, _, ok = st.Take(token)
	assert.False(t, ok, "tokens are single use")

	token, err = st.Put(&webauthn.SessionData{Challenge: "c2"}, "")
	require.NoError(t, err)
	st.now = func() time.Time { return now.Add(challengeTTL + time.Second) }
	_, _, ok = st.Take(token)
	assert.False(t, ok, "expired challenge")
}

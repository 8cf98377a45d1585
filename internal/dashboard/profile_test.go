package dashboard

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfileDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvURL, "")
	t.Setenv(EnvToken, "")

	p := LoadProfile(dir)
	assert.Equal(t, DefaultURL, p.BaseURL)
	assert.Empty(t, p.Token)
	assert.Equal(t, filepath.Join(dir, "session"), p.SessionPath)
}

func TestLoadProfileTokenSources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token"), []byte("file-token\n"), 0600))
	t.Setenv(EnvURL, "https://admin.example.com")
	t.Setenv(EnvToken, "")

	p := LoadProfile(dir)
	assert.Equal(t, "https://admin.example.com", p.BaseURL)
	assert.Equal(t, "file-token", p.Token)

	t.Setenv(EnvToken, "env-token")
	assert.Equal(t, "env-token", LoadProfile(dir).Token)
}

func TestProfileSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := Profile{BaseURL: "http://localhost:8080", SessionPath: filepath.Join(dir, "nested", "session")}

	c, err := p.NewClient()
	require.NoError(t, err)
	c.SetCookies([]*http.Cookie{{Name: "manga_admin_session", Value: "abc"}})
	require.NoError(t, p.SaveSession(c))

	info, err := os.Stat(p.SessionPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	restored, err := p.NewClient()
	require.NoError(t, err)
	cookies := restored.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc", cookies[0].Value)

	require.NoError(t, p.ClearSession())
	require.NoError(t, p.ClearSession())
	_, err = os.Stat(p.SessionPath)
	assert.True(t, os.IsNotExist(err))
}

func TestProfileIgnoresCorruptSession(t *testing.T) {
	dir := t.TempDir()
	p := Profile{BaseURL: "http://localhost:8080", SessionPath: filepath.Join(dir, "session")}
	require.NoError(t, os.WriteFile(p.SessionPath, []byte("{not json"), 0600))

	c, err := p.NewClient()
	require.NoError(t, err)
	assert.Empty(t, c.Cookies())
}

// ABOUTME: Tests for the server binary helpers
// ABOUTME: Flag parsing, the interactive init flow, token issuing and the color log handler

package main

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freegoat/manga-admin/internal/auth"
	"github.com/freegoat/manga-admin/internal/config"
	"github.com/freegoat/manga-admin/internal/store"
)

func TestFlagValue(t *testing.T) {
	args := []string{"--username", "alice", "--ttl=2h"}

	v, err := flagValue(args, "--username", "-u")
	require.NoError(t, err)
	assert.Equal(t, "alice", v)

	v, err = flagValue(args, "--ttl")
	require.NoError(t, err)
	assert.Equal(t, "2h", v)

	v, err = flagValue(args, "--password")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = flagValue([]string{"--username"}, "--username")
	assert.Error(t, err)
}

func TestCheckFlags(t *testing.T) {
	assert.NoError(t, checkFlags([]string{"-u", "bob", "--password=x"}, "-u", "--password"))
	assert.Error(t, checkFlags([]string{"--name", "bob"}, "-u"))
	assert.Error(t, checkFlags([]string{"stray"}, "-u"))
}

func TestHealthURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/health", healthURL(":8080"))
	assert.Equal(t, "http://10.0.0.5:9000/health", healthURL("10.0.0.5:9000"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestColorHandler(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger := slog.New(&colorHandler{out: &buf, mu: &sync.Mutex{}, level: slog.LevelInfo})

	logger.With("component", "api").Info("request", "status", 200)
	logger.Debug("hidden")

	line := buf.String()
	assert.Contains(t, line, "INF request")
	assert.Contains(t, line, "component=api")
	assert.Contains(t, line, "status=200")
	assert.NotContains(t, line, "hidden")
}

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "data", "manga.db")

	answers := strings.Join([]string{
		path,
		"127.0.0.1:9090",
		"",
		"http://localhost:3000, https://admin.example.com",
		"",
		dbPath,
		"",
		"hunter2hunter2",
		"database",
		"no",
		"no",
		"debug",
		"json",
	}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, initConfig(bufio.NewReader(strings.NewReader(answers)), &out))
	assert.Contains(t, out.String(), "Config written to "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.HTTPAddr)
	assert.Equal(t, []string{"http://localhost:3000", "https://admin.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, dbPath, cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "admin", cfg.Auth.AdminUsername)
	assert.Equal(t, config.SessionStoreDatabase, cfg.Auth.SessionStore)
	assert.Len(t, cfg.Auth.CookieHashKey, 64)
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, "json", cfg.Logging.Format)

	_, err = os.Stat(filepath.Dir(dbPath))
	assert.NoError(t, err, "data directory created")
}

func TestBootstrapAndToken(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "config.yaml"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	ctx := context.Background()
	require.NoError(t, runBootstrap(ctx, []string{"--username", "root", "--password", "correct-horse"}))

	cfg, err := config.Load(config.Path())
	require.NoError(t, err)
	assert.Equal(t, "root", cfg.Auth.AdminUsername)

	s, err := store.Open(cfg.Database.Driver, cfg.Database.Path)
	require.NoError(t, err)
	id, err := auth.NewStoreVerifier(s).Verify(ctx, "root", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "root", id.Username)
	manga, err := s.ListManga(ctx)
	require.NoError(t, err)
	assert.Len(t, manga, 2)
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(tokenPath())
	require.NoError(t, err)
	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	require.NoError(t, err)
	username, err := verifier.Verify(string(raw))
	require.NoError(t, err)
	assert.Equal(t, "root", username)

	// rerunning resets the password instead of failing
	require.NoError(t, runBootstrap(ctx, []string{"-u", "root", "-p", "battery-staple"}))

	require.NoError(t, runToken([]string{"--username", "ci-bot", "--ttl", "1h"}))
	raw, err = os.ReadFile(tokenPath())
	require.NoError(t, err)
	username, err = verifier.Verify(string(raw))
	require.NoError(t, err)
	assert.Equal(t, "ci-bot", username)

	assert.Error(t, runToken([]string{"--username", "x", "--ttl", "-5m"}))
}

func TestBootstrapValidation(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, runBootstrap(ctx, nil))
	assert.Error(t, runBootstrap(ctx, []string{"--username", "a", "--password", "short"}))
	assert.Error(t, runBootstrap(ctx, []string{"--name", "a"}))
}

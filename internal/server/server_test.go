// ABOUTME: Tests for server assembly and lifecycle
// ABOUTME: Builds from config against a temp SQLite file and runs real listeners

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/freegoat/manga-admin/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Database.Path = filepath.Join(t.TempDir(), "manga-admin.db")
	cfg.Auth.AdminPassword = "secret"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func TestNew_ServesAPIAndDashboard(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, err = http.Post(ts.URL+"/api/auth/login", "application/json", strings.NewReader(`{"username":"admin","password":"secret"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/auth/login", "application/json", strings.NewReader(`{"username":"admin","password":"admin"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNew_DefaultConfigAcceptsDefaultAdmin(t *testing.T) {
	cfg := config.Default()
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Database.Path = filepath.Join(t.TempDir(), "manga-admin.db")

	s := newTestServer(t, cfg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", strings.NewReader(`{"username":"admin","password":"admin"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNew_Seeds(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	manga, err := s.Store().ListManga(t.Context())
	require.NoError(t, err)
	assert.Len(t, manga, 2)
}

func TestNew_SeedDisabled(t *testing.T) {
	cfg := testConfig(t)
	off := false
	cfg.Database.Seed = &off
	s := newTestServer(t, cfg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	manga, err := s.Store().ListManga(t.Context())
	require.NoError(t, err)
	assert.Empty(t, manga)
}

func TestNew_DatabaseSessions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.SessionStore = config.SessionStoreDatabase
	s := newTestServer(t, cfg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	assert.NotNil(t, s.storeSessions)
	assert.Nil(t, s.memSessions)
}

func TestNew_BadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "postgres"
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.GRPCAddr = "127.0.0.1:0"
	s := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-s.Ready():
	case err := <-done:
		t.Fatalf("Run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}
	addr := s.Addr()
	require.NotNil(t, addr)

	resp, err := http.Get("http://" + addr.String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestGRPCHealth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.GRPCAddr = "127.0.0.1:0"
	s := newTestServer(t, cfg)

	grpcLn, httpLn, err := s.setupTCPListeners()
	require.NoError(t, err)
	require.NotNil(t, grpcLn)
	s.startServers(grpcLn, httpLn)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	conn, err := grpc.NewClient(grpcLn.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestNoGRPCWithoutAddr(t *testing.T) {
	s := newTestServer(t, testConfig(t))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	grpcLn, httpLn, err := s.setupTCPListeners()
	require.NoError(t, err)
	defer httpLn.Close()
	assert.Nil(t, grpcLn)
	assert.Nil(t, s.grpcServer)
}

func TestBuildNotifier(t *testing.T) {
	d, err := buildNotifier(config.NotifyConfig{})
	require.NoError(t, err)
	assert.NotNil(t, d)

	_, err = buildNotifier(config.NotifyConfig{Matrix: config.MatrixConfig{
		Enabled:    true,
		Homeserver: "https://matrix.example.org",
		UserID:     "@bot:example.org",
	}})
	assert.Error(t, err, "room is required")
}

func TestDetermineBaseURL(t *testing.T) {
	t.Setenv("MANGA_ADMIN_URL", "")

	cfg := config.Default()
	assert.Empty(t, determineBaseURL(cfg))

	cfg.Tailscale = config.TailscaleConfig{Enabled: true, Hostname: "manga"}
	assert.Equal(t, "http://manga", determineBaseURL(cfg))
	cfg.Tailscale.HTTPS = true
	assert.Equal(t, "https://manga", determineBaseURL(cfg))

	t.Setenv("MANGA_ADMIN_URL", "https://admin.example.com")
	assert.Equal(t, "https://admin.example.com", determineBaseURL(cfg))

	cfg.Auth.BaseURL = "https://explicit.example.com"
	assert.Equal(t, "https://explicit.example.com", determineBaseURL(cfg))
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")
	_, err := resolveTailscaleAuthKey("")
	assert.Error(t, err)

	key, err := resolveTailscaleAuthKey("tskey-config")
	require.NoError(t, err)
	assert.Equal(t, "tskey-config", key)

	t.Setenv("TS_AUTHKEY", "tskey-env")
	key, err = resolveTailscaleAuthKey("")
	require.NoError(t, err)
	assert.Equal(t, "tskey-env", key)
}

func TestResolveTailscaleStateDir(t *testing.T) {
	dir, err := resolveTailscaleStateDir("/var/lib/manga")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/manga", dir)

	dir, err = resolveTailscaleStateDir("")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(dir, filepath.Join("manga-admin", "tailscale")))
}

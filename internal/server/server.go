// ABOUTME: Process orchestrator wiring config, store, auth, notify and the HTTP API
// ABOUTME: Owns listeners (TCP or tsnet), the gRPC health service and graceful shutdown

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"tailscale.com/tsnet"

	"github.com/freegoat/manga-admin/internal/api"
	"github.com/freegoat/manga-admin/internal/auth"
	"github.com/freegoat/manga-admin/internal/config"
	"github.com/freegoat/manga-admin/internal/dedupe"
	"github.com/freegoat/manga-admin/internal/notify"
	"github.com/freegoat/manga-admin/internal/store"
	"github.com/freegoat/manga-admin/internal/webui"
)

const (
	shutdownTimeout = 5 * time.Second
	sweepInterval   = time.Minute
)

// Server is a running manga-admin instance.
type Server struct {
	config      *config.Config
	store       *store.SQLiteStore
	api         *api.Server
	httpServer  *http.Server
	grpcServer  *grpc.Server
	health      *health.Server
	tsnetServer *tsnet.Server
	idem        *dedupe.Cache
	logger      *slog.Logger

	// exactly one of these is set
	memSessions   *auth.MemorySessions
	storeSessions *auth.StoreSessions

	// httpLn is filled by Run; tests read it through Addr
	httpLn net.Listener
	ready  chan struct{}
}

// New builds every component described by cfg. The database is opened and
// seeded here so configuration errors surface before anything listens.
func New(cfg *config.Config) (*Server, error) {
	logger := slog.Default().With("component", "server")

	st, err := store.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	s := &Server{
		config: cfg,
		store:  st,
		logger: logger,
		ready:  make(chan struct{}),
	}
	if err := s.init(); err != nil {
		_ = st.Close()
		s.closeComponents()
		return nil, err
	}
	return s, nil
}

func (s *Server) init() error {
	cfg := s.config
	ctx := context.Background()

	if cfg.Database.SeedEnabled() {
		if err := store.Seed(ctx, s.store); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	verifier := auth.ChainVerifier{auth.NewStoreVerifier(s.store)}
	if cfg.Auth.AdminPassword != "" {
		if cfg.Auth.AdminPassword == config.DefaultAdminPassword {
			s.logger.Warn("auth.admin_password not set, the default admin password is active", "username", cfg.Auth.AdminUsername)
		}
		verifier = append(verifier, auth.NewStaticVerifier(cfg.Auth.AdminUsername, cfg.Auth.AdminPassword))
	} else {
		s.logger.Info("no static admin password configured, only admin_users rows can log in")
	}

	var sessions auth.SessionStore
	switch cfg.Auth.SessionStore {
	case config.SessionStoreDatabase:
		s.storeSessions = auth.NewStoreSessions(s.store, cfg.Auth.SessionTTL)
		sessions = s.storeSessions
	default:
		s.memSessions = auth.NewMemorySessions(cfg.Auth.SessionTTL)
		sessions = s.memSessions
	}

	if cfg.Auth.CookieHashKey == "" {
		s.logger.Warn("auth.cookie_hash_key not set, sessions will not survive a restart")
	}
	cookies := auth.NewCookieCodec([]byte(cfg.Auth.CookieHashKey), []byte(cfg.Auth.CookieBlockKey))

	var tokens auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		jwtVerifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			return fmt.Errorf("creating token verifier: %w", err)
		}
		tokens = jwtVerifier
	}

	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}

	s.idem = dedupe.New(cfg.Idempotency.TTL, cfg.Idempotency.MaxEntries)

	s.api, err = api.New(api.Options{
		Store:       s.store,
		Verifier:    verifier,
		Gate:        auth.NewGate(sessions, cookies, tokens),
		Admins:      s.store,
		BaseURL:     determineBaseURL(cfg),
		Notifier:    notifier,
		Idempotency: s.idem,
		CORSOrigins: cfg.Server.CORSOrigins,
		BackupDir:   filepath.Join(filepath.Dir(cfg.Database.Path), "backups"),
		WebUI:       webui.Handler(),
	})
	if err != nil {
		return fmt.Errorf("creating API: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Server.GRPCAddr != "" {
		s.health = health.NewServer()
		s.grpcServer = grpc.NewServer(
			grpc.KeepaliveParams(keepalive.ServerParameters{
				Time:    30 * time.Second,
				Timeout: 10 * time.Second,
			}),
		)
		healthpb.RegisterHealthServer(s.grpcServer, s.health)
	}
	return nil
}

// buildNotifier always logs and also posts to Matrix when configured.
func buildNotifier(cfg config.NotifyConfig) (notify.Dispatcher, error) {
	sinks := notify.Multi{notify.NewLogSink()}
	if m := cfg.Matrix; m.Enabled {
		sink, err := notify.NewMatrixSink(notify.MatrixConfig{
			Homeserver:  m.Homeserver,
			UserID:      m.UserID,
			AccessToken: m.AccessToken,
			RoomID:      m.RoomID,
		})
		if err != nil {
			return nil, fmt.Errorf("creating matrix sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

// determineBaseURL resolves the external URL used as the WebAuthn origin.
func determineBaseURL(cfg *config.Config) string {
	if cfg.Auth.BaseURL != "" {
		return cfg.Auth.BaseURL
	}
	if envURL := os.Getenv("MANGA_ADMIN_URL"); envURL != "" {
		return envURL
	}
	if !cfg.Tailscale.Enabled {
		return ""
	}
	if cfg.Tailscale.HTTPS {
		return "https://" + cfg.Tailscale.Hostname
	}
	return "http://" + cfg.Tailscale.Hostname
}

// Handler returns the HTTP handler without listening.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Store returns the opened store.
func (s *Server) Store() *store.SQLiteStore { return s.store }

// Addr returns the HTTP listener address once Run is serving, or nil.
func (s *Server) Addr() net.Addr {
	select {
	case <-s.ready:
		return s.httpLn.Addr()
	default:
		return nil
	}
}

// Ready is closed once Run is listening.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Run listens and serves until ctx is canceled or a server fails.
// It returns nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	grpcLn, httpLn, err := s.setupListeners(ctx)
	if err != nil {
		return err
	}
	s.httpLn = httpLn
	close(s.ready)

	errCh := s.startServers(grpcLn, httpLn)
	go s.sweepSessions(ctx)

	serverErr := s.waitForShutdownSignal(ctx, errCh)
	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

func (s *Server) setupListeners(ctx context.Context) (grpcLn, httpLn net.Listener, err error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", s.config.Server.HTTPAddr)
		}
		return s.setupTailscaleListeners(ctx)
	}
	return s.setupTCPListeners()
}

func (s *Server) setupTCPListeners() (grpcLn, httpLn net.Listener, err error) {
	s.logger.Info("starting manga-admin",
		"http_addr", s.config.Server.HTTPAddr,
		"grpc_addr", s.config.Server.GRPCAddr,
	)

	httpLn, err = net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	if s.grpcServer == nil {
		return nil, httpLn, nil
	}

	grpcLn, err = net.Listen("tcp", s.config.Server.GRPCAddr)
	if err != nil {
		_ = httpLn.Close()
		return nil, nil, fmt.Errorf("listening on gRPC address: %w", err)
	}
	return grpcLn, httpLn, nil
}

// startServers serves HTTP and, when configured, gRPC health in goroutines.
func (s *Server) startServers(grpcLn, httpLn net.Listener) chan error {
	errCh := make(chan error, 2)

	if s.grpcServer != nil && grpcLn != nil {
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			s.logger.Info("gRPC health listening", "addr", grpcLn.Addr().String())
			if err := s.grpcServer.Serve(grpcLn); err != nil {
				errCh <- fmt.Errorf("gRPC server: %w", err)
			}
		}()
	}

	go func() {
		s.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := s.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		select {
		case more := <-errCh:
			s.logger.Error("additional server error", "error", more)
		default:
		}
		return err
	}
}

// sweepSessions deletes expired database sessions until ctx ends.
// Memory sessions sweep themselves.
func (s *Server) sweepSessions(ctx context.Context) {
	if s.storeSessions == nil {
		return
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.storeSessions.Sweep(ctx)
			if err != nil {
				s.logger.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("swept expired sessions", "count", n)
			}
		}
	}
}

// gracefulShutdown uses a fresh context since Run's context is already done.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the listeners and releases every component.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down manga-admin")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if s.grpcServer != nil {
		s.health.Shutdown()
		s.shutdownGRPCServer(ctx)
	}
	if s.tsnetServer != nil {
		if err := s.tsnetServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("tailscale shutdown: %w", err))
		}
	}
	s.closeComponents()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Server) shutdownGRPCServer(ctx context.Context) {
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
}

func (s *Server) closeComponents() {
	if s.api != nil {
		s.api.Close()
	}
	if s.idem != nil {
		s.idem.Close()
	}
	if s.memSessions != nil {
		s.memSessions.Close()
	}
}

// ABOUTME: Login session lifecycle: create on login, get per request, invalidate on logout
// ABOUTME: In-memory store with a janitor goroutine, and a SQLite-backed store

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/freegoat/manga-admin/internal/store"
)

// ErrSessionNotFound is returned for unknown, invalidated or expired tokens.
var ErrSessionNotFound = errors.New("session not found")

// DefaultSessionTTL is how long a login lasts when config does not say otherwise.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Session is an authenticated login.
type Session struct {
	Token         string    `json:"-"`
	Username      string    `json:"username"`
	Authenticated bool      `json:"authenticated"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// SessionStore owns the session lifecycle.
type SessionStore interface {
	// Create starts a session for a verified username.
	Create(ctx context.Context, username string) (*Session, error)
	// Get returns the live session for token or ErrSessionNotFound.
	Get(ctx context.Context, token string) (*Session, error)
	// Invalidate ends a session. Unknown tokens are not an error.
	Invalidate(ctx context.Context, token string) error
}

// NewToken returns 32 random bytes, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// MemorySessions keeps sessions in process memory. A restart logs everyone out.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	cancel   context.CancelFunc
	logger   *slog.Logger
}

var _ SessionStore = (*MemorySessions)(nil)

// NewMemorySessions creates the store and starts a janitor that sweeps
// expired sessions every minute until Close.
func NewMemorySessions(ttl time.Duration) *MemorySessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &MemorySessions{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		cancel:   cancel,
		logger:   slog.Default().With("component", "sessions"),
	}
	go m.janitor(ctx, time.Minute)
	return m
}

// Close stops the janitor goroutine.
func (m *MemorySessions) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Create starts a session.
func (m *MemorySessions) Create(_ context.Context, username string) (*Session, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	now := m.now()
	s := &Session{
		Token:         token,
		Username:      username,
		Authenticated: true,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()

	c := *s
	return &c, nil
}

// Get returns a copy of the live session.
func (m *MemorySessions) Get(_ context.Context, token string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[token]
	if !ok || !m.now().Before(s.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	c := *s
	return &c, nil
}

// Invalidate removes the session.
func (m *MemorySessions) Invalidate(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored sessions, expired ones included.
func (m *MemorySessions) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// sweep drops expired sessions and returns how many went.
func (m *MemorySessions) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for token, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, token)
			n++
		}
	}
	return n
}

func (m *MemorySessions) janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				m.logger.Debug("swept expired sessions", "count", n)
			}
		}
	}
}

// StoreSessions persists sessions in the admin_sessions table so they survive restarts.
type StoreSessions struct {
	store store.AdminStore
	ttl   time.Duration
}

var _ SessionStore = (*StoreSessions)(nil)

// NewStoreSessions creates a database-backed session store.
func NewStoreSessions(s store.AdminStore, ttl time.Duration) *StoreSessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &StoreSessions{store: s, ttl: ttl}
}

// Create starts and persists a session.
func (s *StoreSessions) Create(ctx context.Context, username string) (*Session, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	row := &store.AdminSession{
		ID:        token,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.CreateAdminSession(ctx, row); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return sessionFromRow(row), nil
}

// Get loads a live session.
func (s *StoreSessions) Get(ctx context.Context, token string) (*Session, error) {
	row, err := s.store.GetAdminSession(ctx, token)
	if errors.Is(err, store.ErrAdminSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sessionFromRow(row), nil
}

// Invalidate deletes the session row.
func (s *StoreSessions) Invalidate(ctx context.Context, token string) error {
	if err := s.store.DeleteAdminSession(ctx, token); err != nil {
		return fmt.Errorf("invalidating session: %w", err)
	}
	return nil
}

// Sweep deletes expired rows. The server calls it on a ticker.
func (s *StoreSessions) Sweep(ctx context.Context) (int, error) {
	return s.store.DeleteExpiredAdminSessions(ctx)
}

func sessionFromRow(row *store.AdminSession) *Session {
	return &Session{
		Token:         row.ID,
		Username:      row.Username,
		Authenticated: true,
		CreatedAt:     row.CreatedAt,
		ExpiresAt:     row.ExpiresAt,
	}
}

// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite while matching its ordering and errors

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store and AdminStore implementation for testing.
type MockStore struct {
	mu sync.RWMutex

	seq           int64
	notifications map[string]*Notification
	notifSeq      map[string]int64
	repositories  map[string]*Repository
	repoSeq       map[string]int64
	users         map[string]*User
	manga         map[string]*Manga
	settings      *Settings
	audit         []*AuditEntry

	adminUsers  map[string]*AdminUser // keyed by ID
	sessions    map[string]*AdminSession
	credentials map[string]*WebAuthnCredential

	// PingErr, when set, is returned from Ping.
	PingErr error
}

var (
	_ Store      = (*MockStore)(nil)
	_ AdminStore = (*MockStore)(nil)
)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		notifications: make(map[string]*Notification),
		notifSeq:      make(map[string]int64),
		repositories:  make(map[string]*Repository),
		repoSeq:       make(map[string]int64),
		users:         make(map[string]*User),
		manga:         make(map[string]*Manga),
		adminUsers:    make(map[string]*AdminUser),
		sessions:      make(map[string]*AdminSession),
		credentials:   make(map[string]*WebAuthnCredential),
	}
}

func (m *MockStore) next() int64 {
	m.seq++
	return m.seq
}

// --- notifications ---

// CreateNotification stores a copy of n.
func (m *MockStore) CreateNotification(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.ApplyDefaults()
	if err := n.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := *n
	m.notifications[c.ID] = &c
	m.notifSeq[c.ID] = m.next()
	return nil
}

// GetNotification returns a copy of the notification with id.
func (m *MockStore) GetNotification(ctx context.Context, id string) (*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *n
	return &c, nil
}

// ListNotifications returns copies, newest first.
func (m *MockStore) ListNotifications(ctx context.Context) ([]*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		c := *n
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return m.notifSeq[list[i].ID] > m.notifSeq[list[j].ID]
	})
	return list, nil
}

// MarkNotificationSent sets the sent flag.
func (m *MockStore) MarkNotificationSent(ctx context.Context, id string, sent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	n.Sent = sent
	return nil
}

// DeleteNotification removes a notification.
func (m *MockStore) DeleteNotification(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.notifications[id]; !ok {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	delete(m.notifications, id)
	delete(m.notifSeq, id)
	return nil
}

// NotificationStats counts all and sent notifications.
func (m *MockStore) NotificationStats(ctx context.Context) (NotificationStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := NotificationStats{Total: len(m.notifications)}
	for _, n := range m.notifications {
		if n.Sent {
			stats.Sent++
		}
	}
	return stats, nil
}

// --- repositories ---

// CreateRepository stores a copy of r.
func (m *MockStore) CreateRepository(ctx context.Context, r *Repository) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.LastUpdated.IsZero() {
		r.LastUpdated = time.Now().UTC()
	}
	if err := r.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := *r
	m.repositories[c.ID] = &c
	m.repoSeq[c.ID] = m.next()
	return nil
}

// GetRepository returns a copy of the repository with id.
func (m *MockStore) GetRepository(ctx context.Context, id string) (*Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.repositories[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

// ListRepositories returns copies in creation order.
func (m *MockStore) ListRepositories(ctx context.Context) ([]*Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Repository, 0, len(m.repositories))
	for _, r := range m.repositories {
		c := *r
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool {
		return m.repoSeq[list[i].ID] < m.repoSeq[list[j].ID]
	})
	return list, nil
}

// UpdateRepository applies a partial update.
func (m *MockStore) UpdateRepository(ctx context.Context, id string, u RepositoryUpdate) (*Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.repositories[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	u.Apply(&c, time.Now().UTC())
	if err := c.Validate(); err != nil {
		return nil, err
	}
	*r = c
	return &c, nil
}

// DeleteRepository removes a repository.
func (m *MockStore) DeleteRepository(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.repositories[id]; !ok {
		return fmt.Errorf("repository %s: %w", id, ErrNotFound)
	}
	delete(m.repositories, id)
	delete(m.repoSeq, id)
	return nil
}

// RefreshRepository adds to one repository's source count.
func (m *MockStore) RefreshRepository(ctx context.Context, id string, added int) (*Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.repositories[id]
	if !ok {
		return nil, fmt.Errorf("repository %s: %w", id, ErrNotFound)
	}
	r.SourceCount += added
	r.LastUpdated = time.Now().UTC()
	c := *r
	return &c, nil
}

// RefreshActiveRepositories adds to every active repository's source count.
func (m *MockStore) RefreshActiveRepositories(ctx context.Context, added int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	n := 0
	for _, r := range m.repositories {
		if !r.IsActive {
			continue
		}
		r.SourceCount += added
		r.LastUpdated = now
		n++
	}
	return n, nil
}

// RepositoryStats counts repositories, active ones and their sources.
func (m *MockStore) RepositoryStats(ctx context.Context) (RepositoryStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := RepositoryStats{Total: len(m.repositories)}
	for _, r := range m.repositories {
		if r.IsActive {
			stats.Active++
		}
		stats.Sources += r.SourceCount
	}
	return stats, nil
}

// --- users ---

// CreateUser stores a copy of u.
func (m *MockStore) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.ApplyDefaults(time.Now())
	if err := u.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == u.Username {
			return ErrUsernameExists
		}
	}
	c := *u
	m.users[c.ID] = &c
	return nil
}

// GetUser returns a copy of the user with id.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

// ListUsers returns copies, most recently joined first.
func (m *MockStore) ListUsers(ctx context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		c := *u
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].JoinDate != list[j].JoinDate {
			return list[i].JoinDate > list[j].JoinDate
		}
		return list[i].Username < list[j].Username
	})
	return list, nil
}

// UpdateUser changes email, role or status.
func (m *MockStore) UpdateUser(ctx context.Context, id string, up UserUpdate) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	up.Apply(&c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	*u = c
	return &c, nil
}

// DeleteUser removes a user.
func (m *MockStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

// CountUsers returns the number of users.
func (m *MockStore) CountUsers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// --- manga ---

// CreateManga stores a copy of mg.
func (m *MockStore) CreateManga(ctx context.Context, mg *Manga) error {
	if mg.ID == "" {
		mg.ID = uuid.New().String()
	}
	if mg.Status == "" {
		mg.Status = MangaOngoing
	}
	if err := mg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := *mg
	m.manga[c.ID] = &c
	return nil
}

// GetManga returns a copy of the entry with id.
func (m *MockStore) GetManga(ctx context.Context, id string) (*Manga, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mg, ok := m.manga[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *mg
	return &c, nil
}

// ListManga returns copies ordered by title, ignoring case.
func (m *MockStore) ListManga(ctx context.Context) ([]*Manga, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Manga, 0, len(m.manga))
	for _, mg := range m.manga {
		c := *mg
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool {
		return strings.ToLower(list[i].Title) < strings.ToLower(list[j].Title)
	})
	return list, nil
}

// UpdateManga applies a partial update.
func (m *MockStore) UpdateManga(ctx context.Context, id string, up MangaUpdate) (*Manga, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mg, ok := m.manga[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *mg
	up.Apply(&c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	*mg = c
	return &c, nil
}

// DeleteManga removes a catalogue entry.
func (m *MockStore) DeleteManga(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.manga[id]; !ok {
		return fmt.Errorf("manga %s: %w", id, ErrNotFound)
	}
	delete(m.manga, id)
	return nil
}

// MangaStats counts titles and chapters.
func (m *MockStore) MangaStats(ctx context.Context) (MangaStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := MangaStats{Total: len(m.manga)}
	for _, mg := range m.manga {
		stats.Chapters += mg.Chapters
	}
	return stats, nil
}

// --- settings ---

// GetSettings returns the saved settings or the defaults.
func (m *MockStore) GetSettings(ctx context.Context) (*Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return DefaultSettings(), nil
	}
	c := *m.settings
	return &c, nil
}

// SaveSettings replaces the settings.
func (m *MockStore) SaveSettings(ctx context.Context, st *Settings) error {
	if strings.TrimSpace(st.SiteName) == "" {
		return fmt.Errorf("%w: siteName is required", ErrInvalid)
	}
	st.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	c := *st
	m.settings = &c
	return nil
}

// --- audit ---

// AppendAuditLog records an entry.
func (m *MockStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := *e
	m.audit = append(m.audit, &c)
	return nil
}

// ListAuditLog returns matching entries, newest first.
func (m *MockStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]*AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := normalizeAuditLimit(f.Limit)
	entries := []*AuditEntry{}
	for i := len(m.audit) - 1; i >= 0 && len(entries) < limit; i-- {
		e := m.audit[i]
		if f.Actor != "" && e.Actor != f.Actor {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.TargetType != "" && e.TargetType != f.TargetType {
			continue
		}
		if f.TargetID != "" && e.TargetID != f.TargetID {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		c := *e
		entries = append(entries, &c)
	}
	return entries, nil
}

// --- admin ---

// CreateAdminUser stores a copy of user.
func (m *MockStore) CreateAdminUser(ctx context.Context, user *AdminUser) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.adminUsers {
		if existing.Username == user.Username {
			return ErrUsernameExists
		}
	}
	c := *user
	m.adminUsers[c.ID] = &c
	return nil
}

// GetAdminUser returns the admin with id.
func (m *MockStore) GetAdminUser(ctx context.Context, id string) (*AdminUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.adminUsers[id]
	if !ok {
		return nil, ErrAdminUserNotFound
	}
	c := *u
	return &c, nil
}

// GetAdminUserByUsername returns the admin with username.
func (m *MockStore) GetAdminUserByUsername(ctx context.Context, username string) (*AdminUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.adminUsers {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrAdminUserNotFound
}

// UpdateAdminUserPassword replaces the password hash.
func (m *MockStore) UpdateAdminUserPassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.adminUsers[id]
	if !ok {
		return ErrAdminUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// CountAdminUsers returns the number of admins.
func (m *MockStore) CountAdminUsers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.adminUsers), nil
}

// CreateAdminSession stores a copy of session.
func (m *MockStore) CreateAdminSession(ctx context.Context, session *AdminSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *session
	m.sessions[c.ID] = &c
	return nil
}

// GetAdminSession returns a live session.
func (m *MockStore) GetAdminSession(ctx context.Context, id string) (*AdminSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || !time.Now().Before(s.ExpiresAt) {
		return nil, ErrAdminSessionNotFound
	}
	c := *s
	return &c, nil
}

// DeleteAdminSession removes a session.
func (m *MockStore) DeleteAdminSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// DeleteExpiredAdminSessions drops expired sessions.
func (m *MockStore) DeleteExpiredAdminSessions(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	n := 0
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// CreateWebAuthnCredential stores a copy of cred.
func (m *MockStore) CreateWebAuthnCredential(ctx context.Context, cred *WebAuthnCredential) error {
	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := *cred
	m.credentials[c.ID] = &c
	return nil
}

// GetWebAuthnCredentialsByUser returns the user's credentials, oldest first.
func (m *MockStore) GetWebAuthnCredentialsByUser(ctx context.Context, userID string) ([]*WebAuthnCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var creds []*WebAuthnCredential
	for _, c := range m.credentials {
		if c.UserID == userID {
			cc := *c
			creds = append(creds, &cc)
		}
	}
	sort.Slice(creds, func(i, j int) bool { return creds[i].CreatedAt.Before(creds[j].CreatedAt) })
	return creds, nil
}

// GetWebAuthnCredentialByCredentialID finds a credential by authenticator ID.
func (m *MockStore) GetWebAuthnCredentialByCredentialID(ctx context.Context, credentialID []byte) (*WebAuthnCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.credentials {
		if bytes.Equal(c.CredentialID, credentialID) {
			cc := *c
			return &cc, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateWebAuthnCredentialSignCount stores the new counter.
func (m *MockStore) UpdateWebAuthnCredentialSignCount(ctx context.Context, id string, signCount uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.credentials[id]
	if !ok {
		return fmt.Errorf("webauthn credential %s: %w", id, ErrNotFound)
	}
	c.SignCount = signCount
	return nil
}

// --- lifecycle ---

// Ping returns PingErr.
func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingErr
}

// Backup writes a JSON snapshot of the catalogue tables to dest.
func (m *MockStore) Backup(ctx context.Context, dest string) error {
	m.mu.RLock()
	snapshot := map[string]any{
		"notifications": m.notifications,
		"repositories":  m.repositories,
		"users":         m.users,
		"manga":         m.manga,
	}
	data, err := json.Marshal(snapshot)
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0600)
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// ABOUTME: Tests for the SQLite store implementation
// ABOUTME: Covers opening, notifications, repositories, users, manga and settings persistence

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func ptr[T any](v T) *T { return &v }

// --- opening ---

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("postgres", filepath.Join(t.TempDir(), "x.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpen_InMemory(t *testing.T) {
	store, err := Open(DriverModernc, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	list, err := store.ListNotifications(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFormatTime_SortsLexically(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	a := formatTime(base)
	b := formatTime(base.Add(500 * time.Millisecond))
	assert.Less(t, a, b)

	parsed, err := parseTime("ts", b)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(base.Add(500*time.Millisecond)))
}

// --- notifications ---

func TestNotifications_CreateListNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	older := &Notification{Title: "older", CreatedAt: now.Add(-time.Hour)}
	newer := &Notification{Title: "newer", CreatedAt: now}
	require.NoError(t, store.CreateNotification(ctx, older))
	require.NoError(t, store.CreateNotification(ctx, newer))

	assert.NotEmpty(t, older.ID)
	assert.Equal(t, NotificationGeneral, older.Type)
	assert.Equal(t, PriorityMedium, older.Priority)

	list, err := store.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Title)
	assert.Equal(t, "older", list[1].Title)
}

func TestNotifications_ValidationFails(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.CreateNotification(ctx, &Notification{Title: "   "})
	assert.ErrorIs(t, err, ErrInvalid)

	err = store.CreateNotification(ctx, &Notification{Title: "x", Type: "spam"})
	assert.ErrorIs(t, err, ErrInvalid)

	err = store.CreateNotification(ctx, &Notification{Title: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNotifications_MarkSentAndStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := &Notification{Title: "a"}
	b := &Notification{Title: "b", Sent: true}
	require.NoError(t, store.CreateNotification(ctx, a))
	require.NoError(t, store.CreateNotification(ctx, b))

	stats, err := store.NotificationStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, NotificationStats{Total: 2, Sent: 1}, stats)

	require.NoError(t, store.MarkNotificationSent(ctx, a.ID, true))
	got, err := store.GetNotification(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Sent)

	stats, err = store.NotificationStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sent)
}

func TestNotifications_DeleteMissing(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.DeleteNotification(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetNotification(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotifications_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n := &Notification{Title: "gone soon"}
	require.NoError(t, store.CreateNotification(ctx, n))
	require.NoError(t, store.DeleteNotification(ctx, n.ID))

	list, err := store.ListNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// --- repositories ---

func TestRepositories_CRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	r := &Repository{Name: "Main", URL: "https://example.com/a", IsActive: true, SourceCount: 10}
	require.NoError(t, store.CreateRepository(ctx, r))
	require.NotEmpty(t, r.ID)

	second := &Repository{Name: "Second", URL: "https://example.com/b"}
	require.NoError(t, store.CreateRepository(ctx, second))

	list, err := store.ListRepositories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Main", list[0].Name, "creation order")

	before, err := store.GetRepository(ctx, r.ID)
	require.NoError(t, err)

	updated, err := store.UpdateRepository(ctx, r.ID, RepositoryUpdate{Description: ptr("desc")})
	require.NoError(t, err)
	assert.Equal(t, "desc", updated.Description)
	assert.True(t, updated.LastUpdated.Equal(before.LastUpdated), "lastUpdated unchanged without isActive")

	updated, err = store.UpdateRepository(ctx, r.ID, RepositoryUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.True(t, updated.LastUpdated.After(before.LastUpdated))

	require.NoError(t, store.DeleteRepository(ctx, second.ID))
	assert.ErrorIs(t, store.DeleteRepository(ctx, second.ID), ErrNotFound)
}

func TestRepositories_UpdateValidation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	r := &Repository{Name: "Main", URL: "https://example.com/a"}
	require.NoError(t, store.CreateRepository(ctx, r))

	_, err := store.UpdateRepository(ctx, r.ID, RepositoryUpdate{Name: ptr("")})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = store.UpdateRepository(ctx, "missing", RepositoryUpdate{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositories_RefreshAndStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	active := &Repository{Name: "A", URL: "https://a", IsActive: true, SourceCount: 150}
	inactive := &Repository{Name: "B", URL: "https://b", IsActive: false, SourceCount: 75}
	require.NoError(t, store.CreateRepository(ctx, active))
	require.NoError(t, store.CreateRepository(ctx, inactive))

	got, err := store.RefreshRepository(ctx, inactive.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 80, got.SourceCount)

	n, err := store.RefreshActiveRepositories(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	a, err := store.GetRepository(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, 153, a.SourceCount)

	b, err := store.GetRepository(ctx, inactive.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, b.SourceCount, "inactive repositories are skipped")

	stats, err := store.RepositoryStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, RepositoryStats{Total: 2, Active: 1, Sources: 233}, stats)

	_, err = store.RefreshRepository(ctx, "missing", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- users ---

func TestUsers_CRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	u := &User{Username: "reader", Email: "reader@example.com"}
	require.NoError(t, store.CreateUser(ctx, u))
	assert.Equal(t, RoleUser, u.Role)
	assert.Equal(t, UserStatusActive, u.Status)
	assert.Len(t, u.JoinDate, len(JoinDateLayout))

	err := store.CreateUser(ctx, &User{Username: "reader"})
	assert.ErrorIs(t, err, ErrUsernameExists)

	updated, err := store.UpdateUser(ctx, u.ID, UserUpdate{Role: ptr(RoleModerator)})
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, updated.Role)

	_, err = store.UpdateUser(ctx, u.ID, UserUpdate{Status: ptr("sleeping")})
	assert.ErrorIs(t, err, ErrInvalid)

	count, err := store.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.DeleteUser(ctx, u.ID))
	assert.ErrorIs(t, store.DeleteUser(ctx, u.ID), ErrNotFound)
}

func TestUsers_ListOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &User{Username: "old", JoinDate: "2024-01-10"}))
	require.NoError(t, store.CreateUser(ctx, &User{Username: "new", JoinDate: "2024-01-15"}))

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "new", users[0].Username)
}

// --- manga ---

func TestManga_CRUDAndStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	op := &Manga{Title: "One Piece", Author: "Eiichiro Oda", Chapters: 1100, Rating: 9.5}
	naruto := &Manga{Title: "naruto", Author: "Masashi Kishimoto", Status: MangaCompleted, Chapters: 700, Rating: 9}
	require.NoError(t, store.CreateManga(ctx, op))
	require.NoError(t, store.CreateManga(ctx, naruto))
	assert.Equal(t, MangaOngoing, op.Status)

	list, err := store.ListManga(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "naruto", list[0].Title, "case-insensitive title order")

	stats, err := store.MangaStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, MangaStats{Total: 2, Chapters: 1800}, stats)

	updated, err := store.UpdateManga(ctx, op.ID, MangaUpdate{Chapters: ptr(1101)})
	require.NoError(t, err)
	assert.Equal(t, 1101, updated.Chapters)

	_, err = store.UpdateManga(ctx, op.ID, MangaUpdate{Rating: ptr(11.0)})
	assert.ErrorIs(t, err, ErrInvalid)

	require.NoError(t, store.DeleteManga(ctx, naruto.ID))
	_, err = store.GetManga(ctx, naruto.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManga_RequiresAuthor(t *testing.T) {
	store := setupTestStore(t)
	err := store.CreateManga(context.Background(), &Manga{Title: "Nameless"})
	assert.ErrorIs(t, err, ErrInvalid)
}

// --- settings ---

func TestSettings_DefaultsThenSave(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	st, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FreeGoat Manga", st.SiteName)
	assert.True(t, st.EnableNotifications)

	st.SiteName = "Goat Reader"
	st.MaintenanceMode = true
	require.NoError(t, store.SaveSettings(ctx, st))

	got, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Goat Reader", got.SiteName)
	assert.True(t, got.MaintenanceMode)
	assert.False(t, got.UpdatedAt.IsZero())

	err = store.SaveSettings(ctx, &Settings{})
	assert.ErrorIs(t, err, ErrInvalid)
}

// --- backup ---

func TestBackup_WritesFile(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateNotification(ctx, &Notification{Title: "keep me"}))

	dest := filepath.Join(t.TempDir(), "backups", "snapshot.db")
	require.NoError(t, store.Backup(ctx, dest))

	restored, err := NewSQLiteStore(dest)
	require.NoError(t, err)
	defer restored.Close()

	list, err := restored.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "keep me", list[0].Title)
}

// ABOUTME: Tests for MockStore behaviour that handler tests rely on
// ABOUTME: Verifies copy semantics, ordering and not-found errors

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

func TestMockStore_ReturnsCopies(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	r := &Repository{Name: "Main", URL: "https://a", IsActive: true}
	require.NoError(t, m.CreateRepository(ctx, r))

	got, err := m.GetRepository(ctx, r.ID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := m.GetRepository(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main", again.Name)
}

func TestMockStore_NotificationOrder(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, m.CreateNotification(ctx, &Notification{Title: "a", CreatedAt: now}))
	require.NoError(t, m.CreateNotification(ctx, &Notification{Title: "b", CreatedAt: now}))
	require.NoError(t, m.CreateNotification(ctx, &Notification{Title: "old", CreatedAt: now.Add(-time.Hour)}))

	list, err := m.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[0].Title, "ties broken by insertion, newest first")
	assert.Equal(t, "old", list[2].Title)
}

func TestMockStore_NotFound(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	assert.ErrorIs(t, m.DeleteNotification(ctx, "x"), ErrNotFound)
	assert.ErrorIs(t, m.DeleteRepository(ctx, "x"), ErrNotFound)
	assert.ErrorIs(t, m.DeleteUser(ctx, "x"), ErrNotFound)
	assert.ErrorIs(t, m.DeleteManga(ctx, "x"), ErrNotFound)

	_, err := m.RefreshRepository(ctx, "x", 5)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.UpdateUser(ctx, "x", UserUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockStore_Sessions(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	require.NoError(t, m.CreateAdminSession(ctx, &AdminSession{ID: "s", Username: "admin", ExpiresAt: time.Now().Add(-time.Second)}))
	_, err := m.GetAdminSession(ctx, "s")
	assert.ErrorIs(t, err, ErrAdminSessionNotFound)

	n, err := m.DeleteExpiredAdminSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMockStore_Backup(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	require.NoError(t, Seed(ctx, m))

	dest := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, m.Backup(ctx, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "One Piece")
}

// ABOUTME: Tests for audit log store operations
// ABOUTME: Covers Append and List with filtering for the audit_log table

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditStore_Append(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	entry := &AuditEntry{
		Actor:      "admin",
		Action:     AuditDeleteRepository,
		TargetType: "repository",
		TargetID:   "repo-1",
		Detail:     map[string]any{"name": "Main"},
	}
	require.NoError(t, store.AppendAuditLog(ctx, entry))

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Main", entries[0].Detail["name"])
}

func TestAuditStore_List_NewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, action := range []AuditAction{AuditCreateUser, AuditUpdateUser, AuditDeleteUser} {
		require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
			Actor:      "admin",
			Action:     action,
			TargetType: "user",
			TargetID:   fmt.Sprintf("user-%d", i),
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, AuditDeleteUser, entries[0].Action)
	assert.Nil(t, entries[0].Detail)
}

func TestAuditStore_List_Filters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
		Actor: "alice", Action: AuditCreateManga, TargetType: "manga", TargetID: "m1", Timestamp: base,
	}))
	require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
		Actor: "bob", Action: AuditUpdateSettings, TargetType: "settings", TargetID: "site", Timestamp: base.Add(30 * time.Minute),
	}))

	byActor, err := store.ListAuditLog(ctx, AuditFilter{Actor: "alice"})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, "m1", byActor[0].TargetID)

	byAction, err := store.ListAuditLog(ctx, AuditFilter{Action: AuditUpdateSettings})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, "bob", byAction[0].Actor)

	since, err := store.ListAuditLog(ctx, AuditFilter{Since: base.Add(10 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, "settings", since[0].TargetType)

	none, err := store.ListAuditLog(ctx, AuditFilter{TargetType: "repository"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestAuditStore_List_Limit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
			Actor: "admin", Action: AuditQuickAction, TargetType: "quick_action", TargetID: "clear-cache",
		}))
	}

	entries, err := store.ListAuditLog(ctx, AuditFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestNormalizeAuditLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 100},
		{-5, 100},
		{50, 50},
		{1000, 1000},
		{5000, 1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeAuditLimit(tt.in), "limit %d", tt.in)
	}
}

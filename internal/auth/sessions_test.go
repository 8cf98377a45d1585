// ABOUTME: Tests for the session stores
// ABOUTME: Create/get/invalidate lifecycle, expiry and sweeping for memory and database backends

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freegoat/manga-admin/internal/store"
)

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestSessionStores_Lifecycle(t *testing.T) {
	mem := NewMemorySessions(time.Hour)
	t.Cleanup(mem.Close)

	for name, sessions := range map[string]SessionStore{
		"memory":   mem,
		"database": NewStoreSessions(store.NewMockStore(), time.Hour),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			s, err := sessions.Create(ctx, "admin")
			require.NoError(t, err)
			assert.True(t, s.Authenticated)
			assert.Equal(t, "admin", s.Username)
			assert.WithinDuration(t, time.Now().Add(time.Hour), s.ExpiresAt, time.Minute)

			got, err := sessions.Get(ctx, s.Token)
			require.NoError(t, err)
			assert.Equal(t, "admin", got.Username)

			require.NoError(t, sessions.Invalidate(ctx, s.Token))
			_, err = sessions.Get(ctx, s.Token)
			assert.ErrorIs(t, err, ErrSessionNotFound)

			// invalidating twice is fine
			require.NoError(t, sessions.Invalidate(ctx, s.Token))

			_, err = sessions.Get(ctx, "never-issued")
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestMemorySessions_Expiry(t *testing.T) {
	m := NewMemorySessions(time.Hour)
	defer m.Close()
	ctx := context.Background()

	now := time.Now()
	m.now = func() time.Time { return now }

	s, err := m.Create(ctx, "admin")
	require.NoError(t, err)

	m.now = func() time.Time { return now.Add(59 * time.Minute) }
	_, err = m.Get(ctx, s.Token)
	require.NoError(t, err)

	m.now = func() time.Time { return now.Add(time.Hour) }
	_, err = m.Get(ctx, s.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, m.sweep())
	assert.Equal(t, 0, m.Len())
}

func TestMemorySessions_DefaultTTL(t *testing.T) {
	m := NewMemorySessions(0)
	defer m.Close()
	assert.Equal(t, DefaultSessionTTL, m.ttl)
}

func TestStoreSessions_Sweep(t *testing.T) {
	ms := store.NewMockStore()
	ctx := context.Background()
	require.NoError(t, ms.CreateAdminSession(ctx, &store.AdminSession{
		ID: "stale", Username: "admin", ExpiresAt: time.Now().Add(-time.Minute),
	}))

	n, err := NewStoreSessions(ms, time.Hour).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// ABOUTME: Tests for demo data seeding
// ABOUTME: Checks the seeded counts and that reseeding leaves data alone

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_PopulatesEmptyStore(t *testing.T) {
	for name, s := range map[string]Store{
		"sqlite": setupTestStore(t),
		"mock":   NewMockStore(),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, Seed(ctx, s))

			notifications, err := s.ListNotifications(ctx)
			require.NoError(t, err)
			require.Len(t, notifications, 2)
			assert.Equal(t, "Welcome to the dashboard", notifications[0].Title)
			assert.Equal(t, PriorityHigh, notifications[1].Priority)

			repoStats, err := s.RepositoryStats(ctx)
			require.NoError(t, err)
			assert.Equal(t, RepositoryStats{Total: 2, Active: 1, Sources: 225}, repoStats)

			users, err := s.ListUsers(ctx)
			require.NoError(t, err)
			require.Len(t, users, 2)
			assert.Equal(t, "user1", users[0].Username)

			mangaStats, err := s.MangaStats(ctx)
			require.NoError(t, err)
			assert.Equal(t, MangaStats{Total: 2, Chapters: 1800}, mangaStats)
		})
	}
}

func TestSeed_Idempotent(t *testing.T) {
	s := NewMockStore()
	ctx := context.Background()

	require.NoError(t, Seed(ctx, s))
	require.NoError(t, Seed(ctx, s))

	stats, err := s.NotificationStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)

	count, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSeed_SkipsNonEmptyTables(t *testing.T) {
	s := NewMockStore()
	ctx := context.Background()

	require.NoError(t, s.CreateManga(ctx, &Manga{Title: "Berserk", Author: "Kentaro Miura"}))
	require.NoError(t, Seed(ctx, s))

	manga, err := s.ListManga(ctx)
	require.NoError(t, err)
	require.Len(t, manga, 1)
	assert.Equal(t, "Berserk", manga[0].Title)

	repos, err := s.ListRepositories(ctx)
	require.NoError(t, err)
	assert.Len(t, repos, 2)
}

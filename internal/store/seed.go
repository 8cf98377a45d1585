// ABOUTME: Demo data written into an empty database on first start
// ABOUTME: Each table is seeded only when it has no rows yet

package store

import (
	"context"
	"fmt"
	"time"
)

// Seed fills empty tables with a small demo dataset. Tables that already
// contain rows are left alone, so calling Seed on every start is safe.
func Seed(ctx context.Context, s Store) error {
	now := time.Now().UTC()

	notifications, err := s.ListNotifications(ctx)
	if err != nil {
		return err
	}
	if len(notifications) == 0 {
		for _, n := range seedNotifications(now) {
			if err := s.CreateNotification(ctx, n); err != nil {
				return fmt.Errorf("seeding notification %q: %w", n.Title, err)
			}
		}
	}

	repos, err := s.ListRepositories(ctx)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		for _, r := range seedRepositories(now) {
			if err := s.CreateRepository(ctx, r); err != nil {
				return fmt.Errorf("seeding repository %q: %w", r.Name, err)
			}
		}
	}

	userCount, err := s.CountUsers(ctx)
	if err != nil {
		return err
	}
	if userCount == 0 {
		for _, u := range seedUsers() {
			if err := s.CreateUser(ctx, u); err != nil {
				return fmt.Errorf("seeding user %q: %w", u.Username, err)
			}
		}
	}

	mangaStats, err := s.MangaStats(ctx)
	if err != nil {
		return err
	}
	if mangaStats.Total == 0 {
		for _, m := range seedManga() {
			if err := s.CreateManga(ctx, m); err != nil {
				return fmt.Errorf("seeding manga %q: %w", m.Title, err)
			}
		}
	}

	return nil
}

func seedNotifications(now time.Time) []*Notification {
	return []*Notification{
		{
			Title:     "Welcome to the dashboard",
			Body:      "Manage notifications, repositories, users and manga from one place.",
			Type:      NotificationGeneral,
			Priority:  PriorityMedium,
			CreatedAt: now.Add(-2 * time.Hour),
			Sent:      true,
		},
		{
			Title:     "System update",
			Body:      "The reader app was updated with performance fixes.",
			Type:      NotificationUpdate,
			Priority:  PriorityHigh,
			CreatedAt: now.Add(-24 * time.Hour),
			Sent:      true,
		},
	}
}

func seedRepositories(now time.Time) []*Repository {
	return []*Repository{
		{
			Name:        "Main Repository",
			URL:         "https://example.com/manga-repo",
			Description: "Primary manga source",
			IsActive:    true,
			SourceCount: 150,
			LastUpdated: now.Add(-6 * time.Hour),
		},
		{
			Name:        "Secondary Repository",
			URL:         "https://example.com/manga-repo-2",
			Description: "Backup manga source",
			IsActive:    false,
			SourceCount: 75,
			LastUpdated: now.Add(-12 * time.Hour),
		},
	}
}

func seedUsers() []*User {
	return []*User{
		{Username: "user1", Email: "user1@example.com", Role: RoleUser, Status: UserStatusActive, JoinDate: "2024-01-15"},
		{Username: "moderator1", Email: "mod1@example.com", Role: RoleModerator, Status: UserStatusActive, JoinDate: "2024-01-10"},
	}
}

func seedManga() []*Manga {
	return []*Manga{
		{Title: "One Piece", Author: "Eiichiro Oda", Description: "Pirates searching for the One Piece.", Status: MangaOngoing, Chapters: 1100, Rating: 9.5},
		{Title: "Naruto", Author: "Masashi Kishimoto", Description: "A young ninja who wants to become Hokage.", Status: MangaCompleted, Chapters: 700, Rating: 9.0},
	}
}

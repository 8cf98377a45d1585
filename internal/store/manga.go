// ABOUTME: SQLite persistence for the manga catalogue
// ABOUTME: Tracks title, author, status, chapter count and rating per entry

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const mangaColumns = `id, title, author, description, status, chapters, rating`

// CreateManga stores a new catalogue entry. Status defaults to ongoing.
func (s *SQLiteStore) CreateManga(ctx context.Context, m *Manga) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Status == "" {
		m.Status = MangaOngoing
	}
	if err := m.Validate(); err != nil {
		return err
	}

	query := `INSERT INTO manga (` + mangaColumns + `, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.Title, m.Author, m.Description, m.Status, m.Chapters, m.Rating,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("inserting manga: %w", err)
	}

	s.logger.Debug("created manga", "id", m.ID, "title", m.Title)
	return nil
}

// GetManga retrieves a manga entry by ID.
func (s *SQLiteStore) GetManga(ctx context.Context, id string) (*Manga, error) {
	query := `SELECT ` + mangaColumns + ` FROM manga WHERE id = ?`

	var m Manga
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Title, &m.Author, &m.Description, &m.Status, &m.Chapters, &m.Rating,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying manga: %w", err)
	}
	return &m, nil
}

// ListManga returns the catalogue ordered by title.
func (s *SQLiteStore) ListManga(ctx context.Context) ([]*Manga, error) {
	query := `SELECT ` + mangaColumns + ` FROM manga ORDER BY title COLLATE NOCASE ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying manga: %w", err)
	}
	defer func() { _ = rows.Close() }()

	list := []*Manga{}
	for rows.Next() {
		var m Manga
		if err := rows.Scan(&m.ID, &m.Title, &m.Author, &m.Description, &m.Status, &m.Chapters, &m.Rating); err != nil {
			return nil, fmt.Errorf("scanning manga: %w", err)
		}
		list = append(list, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating manga: %w", err)
	}
	return list, nil
}

// UpdateManga applies a partial update and returns the stored entry.
func (s *SQLiteStore) UpdateManga(ctx context.Context, id string, up MangaUpdate) (*Manga, error) {
	m, err := s.GetManga(ctx, id)
	if err != nil {
		return nil, err
	}

	up.Apply(m)
	if err := m.Validate(); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE manga
		SET title = ?, author = ?, description = ?, status = ?, chapters = ?, rating = ?
		WHERE id = ?
	`, m.Title, m.Author, m.Description, m.Status, m.Chapters, m.Rating, id)
	if err != nil {
		return nil, fmt.Errorf("updating manga: %w", err)
	}
	if err := checkRowsAffected(result, "manga "+id); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteManga removes a catalogue entry.
func (s *SQLiteStore) DeleteManga(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM manga WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting manga: %w", err)
	}
	return checkRowsAffected(result, "manga "+id)
}

// MangaStats counts titles and the chapters across them.
func (s *SQLiteStore) MangaStats(ctx context.Context) (MangaStats, error) {
	var stats MangaStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(chapters), 0) FROM manga`,
	).Scan(&stats.Total, &stats.Chapters)
	if err != nil {
		return MangaStats{}, fmt.Errorf("counting manga: %w", err)
	}
	return stats, nil
}

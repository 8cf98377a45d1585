// ABOUTME: SQLite persistence for manga content repositories
// ABOUTME: CRUD plus the refresh operations that bump source counts

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const repositoryColumns = `id, name, url, description, is_active, source_count, last_updated`

// CreateRepository stores a new repository.
// Generates ID and LastUpdated if not set.
func (s *SQLiteStore) CreateRepository(ctx context.Context, r *Repository) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if r.LastUpdated.IsZero() {
		r.LastUpdated = now
	}
	if err := r.Validate(); err != nil {
		return err
	}

	query := `INSERT INTO repositories (` + repositoryColumns + `, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.Name,
		r.URL,
		r.Description,
		boolToInt(r.IsActive),
		r.SourceCount,
		formatTime(r.LastUpdated),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("inserting repository: %w", err)
	}

	s.logger.Debug("created repository", "id", r.ID, "name", r.Name)
	return nil
}

// GetRepository retrieves a repository by ID.
func (s *SQLiteStore) GetRepository(ctx context.Context, id string) (*Repository, error) {
	return s.getRepository(ctx, s.db, id)
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) getRepository(ctx context.Context, q queryRower, id string) (*Repository, error) {
	query := `SELECT ` + repositoryColumns + ` FROM repositories WHERE id = ?`
	r, err := scanRepository(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying repository: %w", err)
	}
	return r, nil
}

// ListRepositories returns all repositories in creation order.
func (s *SQLiteStore) ListRepositories(ctx context.Context) ([]*Repository, error) {
	query := `SELECT ` + repositoryColumns + ` FROM repositories ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	repos := []*Repository{}
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning repository: %w", err)
		}
		repos = append(repos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating repositories: %w", err)
	}
	return repos, nil
}

// UpdateRepository applies a partial update inside a transaction and returns the result.
func (s *SQLiteStore) UpdateRepository(ctx context.Context, id string, u RepositoryUpdate) (*Repository, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	r, err := s.getRepository(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	u.Apply(r, time.Now().UTC())
	if err := r.Validate(); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE repositories
		SET name = ?, url = ?, description = ?, is_active = ?, last_updated = ?
		WHERE id = ?
	`, r.Name, r.URL, r.Description, boolToInt(r.IsActive), formatTime(r.LastUpdated), id)
	if err != nil {
		return nil, fmt.Errorf("updating repository: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing repository update: %w", err)
	}

	s.logger.Debug("updated repository", "id", id, "active", r.IsActive)
	return r, nil
}

// DeleteRepository removes a repository.
func (s *SQLiteStore) DeleteRepository(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting repository: %w", err)
	}
	if err := checkRowsAffected(result, "repository "+id); err != nil {
		return err
	}
	s.logger.Debug("deleted repository", "id", id)
	return nil
}

// RefreshRepository adds to a repository's source count and stamps lastUpdated.
func (s *SQLiteStore) RefreshRepository(ctx context.Context, id string, added int) (*Repository, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE repositories SET source_count = source_count + ?, last_updated = ? WHERE id = ?`,
		added, formatTime(time.Now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("refreshing repository: %w", err)
	}
	if err := checkRowsAffected(result, "repository "+id); err != nil {
		return nil, err
	}
	return s.GetRepository(ctx, id)
}

// RefreshActiveRepositories refreshes every active repository.
func (s *SQLiteStore) RefreshActiveRepositories(ctx context.Context, added int) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE repositories SET source_count = source_count + ?, last_updated = ? WHERE is_active = 1`,
		added, formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("refreshing repositories: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	s.logger.Debug("refreshed active repositories", "count", n)
	return int(n), nil
}

// RepositoryStats counts repositories, active ones, and their total sources.
func (s *SQLiteStore) RepositoryStats(ctx context.Context) (RepositoryStats, error) {
	var stats RepositoryStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_active), 0), COALESCE(SUM(source_count), 0) FROM repositories`,
	).Scan(&stats.Total, &stats.Active, &stats.Sources)
	if err != nil {
		return RepositoryStats{}, fmt.Errorf("counting repositories: %w", err)
	}
	return stats, nil
}

func scanRepository(row rowScanner) (*Repository, error) {
	var r Repository
	var active int
	var lastUpdated string

	if err := row.Scan(&r.ID, &r.Name, &r.URL, &r.Description, &active, &r.SourceCount, &lastUpdated); err != nil {
		return nil, err
	}
	r.IsActive = active != 0

	var err error
	r.LastUpdated, err = parseTime("last_updated", lastUpdated)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

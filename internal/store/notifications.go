// ABOUTME: SQLite persistence for dashboard notifications
// ABOUTME: Newest-first listing, sent flag updates and aggregate counts

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const notificationColumns = `id, title, body, type, priority, created_at, sent`

// CreateNotification stores a new notification.
// Generates ID and CreatedAt if not set.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *Notification) error {
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

	query := `INSERT INTO notifications (` + notificationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		n.ID,
		n.Title,
		n.Body,
		string(n.Type),
		string(n.Priority),
		formatTime(n.CreatedAt),
		boolToInt(n.Sent),
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}

	s.logger.Debug("created notification", "id", n.ID, "type", n.Type)
	return nil
}

// GetNotification retrieves a notification by ID.
func (s *SQLiteStore) GetNotification(ctx context.Context, id string) (*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`
	n, err := scanNotification(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns all notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context) ([]*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	notifications := []*Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}
	return notifications, nil
}

// MarkNotificationSent records whether delivery succeeded.
func (s *SQLiteStore) MarkNotificationSent(ctx context.Context, id string, sent bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET sent = ? WHERE id = ?`, boolToInt(sent), id)
	if err != nil {
		return fmt.Errorf("updating notification: %w", err)
	}
	return checkRowsAffected(result, "notification "+id)
}

// DeleteNotification removes a notification.
func (s *SQLiteStore) DeleteNotification(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	if err := checkRowsAffected(result, "notification "+id); err != nil {
		return err
	}
	s.logger.Debug("deleted notification", "id", id)
	return nil
}

// NotificationStats counts all and sent notifications.
func (s *SQLiteStore) NotificationStats(ctx context.Context) (NotificationStats, error) {
	var stats NotificationStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(sent), 0) FROM notifications`,
	).Scan(&stats.Total, &stats.Sent)
	if err != nil {
		return NotificationStats{}, fmt.Errorf("counting notifications: %w", err)
	}
	return stats, nil
}

func scanNotification(row rowScanner) (*Notification, error) {
	var n Notification
	var typ, priority, createdAt string
	var sent int

	if err := row.Scan(&n.ID, &n.Title, &n.Body, &typ, &priority, &createdAt, &sent); err != nil {
		return nil, err
	}

	n.Type = NotificationType(typ)
	n.Priority = Priority(priority)
	n.Sent = sent != 0

	var err error
	n.CreatedAt, err = parseTime("created_at", createdAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

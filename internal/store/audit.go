// ABOUTME: Audit log entity and store methods for tracking dashboard mutations
// ABOUTME: Records which admin changed which resource, newest entries listed first

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents an auditable action.
type AuditAction string

const (
	AuditSendNotification   AuditAction = "send_notification"
	AuditDeleteNotification AuditAction = "delete_notification"
	AuditCreateRepository   AuditAction = "create_repository"
	AuditUpdateRepository   AuditAction = "update_repository"
	AuditDeleteRepository   AuditAction = "delete_repository"
	AuditRefreshRepository  AuditAction = "refresh_repository"
	AuditCreateUser         AuditAction = "create_user"
	AuditUpdateUser         AuditAction = "update_user"
	AuditDeleteUser         AuditAction = "delete_user"
	AuditCreateManga        AuditAction = "create_manga"
	AuditUpdateManga        AuditAction = "update_manga"
	AuditDeleteManga        AuditAction = "delete_manga"
	AuditUpdateSettings     AuditAction = "update_settings"
	AuditQuickAction        AuditAction = "quick_action"
	AuditLogin              AuditAction = "login"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID         string         `json:"id"`
	Actor      string         `json:"actor"`      // admin username
	Action     AuditAction    `json:"action"`     // what was done
	TargetType string         `json:"targetType"` // "notification", "repository", ...
	TargetID   string         `json:"targetId"`
	Timestamp  time.Time      `json:"timestamp"`
	Detail     map[string]any `json:"detail,omitempty"`
}

// AuditFilter narrows ListAuditLog results. Zero values match everything.
type AuditFilter struct {
	Actor      string
	Action     AuditAction
	TargetType string
	TargetID   string
	Since      time.Time
	Limit      int // default 100, max 1000
}

// AuditStore records and lists audit entries
type AuditStore interface {
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]*AuditEntry, error)
}

// AppendAuditLog appends a new entry to the audit log.
// Generates ID and Timestamp if not set.
func (s *SQLiteStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (audit_id, actor, action, target_type, target_id, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Actor, string(e.Action), e.TargetType, e.TargetID, formatTime(e.Timestamp), detailJSON)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	s.logger.Debug("appended audit log",
		"actor", e.Actor,
		"action", e.Action,
		"target", e.TargetType+"/"+e.TargetID,
	)
	return nil
}

// normalizeAuditLimit applies default (100) and cap (1000) to audit limit.
func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// nullIfEmpty turns "" into a SQL NULL so the filter clause matches everything.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const auditLogQuery = `
	SELECT audit_id, actor, action, target_type, target_id, ts, detail_json
	FROM audit_log
	WHERE (?1 IS NULL OR actor = ?1)
	  AND (?2 IS NULL OR action = ?2)
	  AND (?3 IS NULL OR target_type = ?3)
	  AND (?4 IS NULL OR target_id = ?4)
	  AND (?5 IS NULL OR ts >= ?5)
	ORDER BY ts DESC, rowid DESC
	LIMIT ?6
`

// ListAuditLog returns audit entries matching the filter, newest first.
func (s *SQLiteStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]*AuditEntry, error) {
	var since any
	if !f.Since.IsZero() {
		since = formatTime(f.Since)
	}

	rows, err := s.db.QueryContext(ctx, auditLogQuery,
		nullIfEmpty(f.Actor),
		nullIfEmpty(string(f.Action)),
		nullIfEmpty(f.TargetType),
		nullIfEmpty(f.TargetID),
		since,
		normalizeAuditLimit(f.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []*AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		var action, ts string
		var detailJSON *string

		if err := rows.Scan(&e.ID, &e.Actor, &action, &e.TargetType, &e.TargetID, &ts, &detailJSON); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Action = AuditAction(action)
		if e.Timestamp, err = parseTime("ts", ts); err != nil {
			return nil, err
		}
		if detailJSON != nil {
			if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshaling detail: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}
	return entries, nil
}

// ABOUTME: SQLite persistence for the single site settings row
// ABOUTME: Returns DefaultSettings until the dashboard saves a change

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GetSettings returns the saved settings, or the defaults if none were saved.
func (s *SQLiteStore) GetSettings(ctx context.Context) (*Settings, error) {
	var st Settings
	var allowReg, enableNotif, maintenance int
	var updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT site_name, site_description, allow_registration, enable_notifications, maintenance_mode, updated_at
		FROM settings WHERE id = 1
	`).Scan(&st.SiteName, &st.SiteDescription, &allowReg, &enableNotif, &maintenance, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}

	st.AllowRegistration = allowReg != 0
	st.EnableNotifications = enableNotif != 0
	st.MaintenanceMode = maintenance != 0
	st.UpdatedAt, err = parseTime("updated_at", updatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveSettings upserts the settings row.
func (s *SQLiteStore) SaveSettings(ctx context.Context, st *Settings) error {
	if strings.TrimSpace(st.SiteName) == "" {
		return fmt.Errorf("%w: siteName is required", ErrInvalid)
	}
	st.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, site_name, site_description, allow_registration, enable_notifications, maintenance_mode, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			site_name = excluded.site_name,
			site_description = excluded.site_description,
			allow_registration = excluded.allow_registration,
			enable_notifications = excluded.enable_notifications,
			maintenance_mode = excluded.maintenance_mode,
			updated_at = excluded.updated_at
	`,
		st.SiteName,
		st.SiteDescription,
		boolToInt(st.AllowRegistration),
		boolToInt(st.EnableNotifications),
		boolToInt(st.MaintenanceMode),
		formatTime(st.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	s.logger.Info("settings saved", "site_name", st.SiteName, "maintenance", st.MaintenanceMode)
	return nil
}

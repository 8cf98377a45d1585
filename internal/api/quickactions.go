// ABOUTME: Quick action handler for one-click maintenance tasks
// ABOUTME: Clears the replay cache, exports every table or snapshots the database

package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"github.com/freegoat/manga-admin/internal/store"
)

// Quick action names accepted by POST /api/quick-actions/{action}.
const (
	ActionClearCache = "clear-cache"
	ActionExportData = "export-data"
	ActionBackup     = "backup"
)

// backuper is implemented by stores that can snapshot themselves.
type backuper interface {
	Backup(ctx context.Context, dest string) error
}

// Export is the payload of the export-data action.
type Export struct {
	ExportedAt    time.Time             `json:"exportedAt"`
	Notifications []*store.Notification `json:"notifications"`
	Repositories  []*store.Repository   `json:"repositories"`
	Users         []*store.User         `json:"users"`
	Manga         []*store.Manga        `json:"manga"`
	Settings      *store.Settings       `json:"settings"`
}

func (s *Server) handleQuickAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]

	var (
		message string
		data    any
	)
	switch action {
	case ActionClearCache:
		cleared := 0
		if s.idem != nil {
			cleared = s.idem.Clear()
		}
		message = "Cache cleared successfully"
		data = map[string]int{"cleared": cleared}

	case ActionExportData:
		export, err := s.export(r.Context())
		if err != nil {
			s.storeFailure(w, "export data", err, "")
			return
		}
		message = "Data exported successfully"
		data = export

	case ActionBackup:
		b, ok := s.store.(backuper)
		if !ok {
			writeEnvelope(w, http.StatusNotImplemented, "Backups are not supported by this store", nil)
			return
		}
		dest := filepath.Join(s.backupDir, fmt.Sprintf("manga-admin-%s.db", time.Now().UTC().Format("20060102-150405")))
		if err := b.Backup(r.Context(), dest); err != nil {
			s.logger.Error("backup failed", "dest", dest, "error", err)
			writeEnvelope(w, http.StatusInternalServerError, "Backup failed", nil)
			return
		}
		s.logger.Info("database backed up", "dest", dest)
		message = "Backup created successfully"
		data = map[string]string{"path": dest}

	default:
		writeEnvelope(w, http.StatusBadRequest, "Invalid action", nil)
		return
	}

	s.audit(r, "", store.AuditQuickAction, "quick_action", action, nil)
	writeEnvelope(w, http.StatusOK, message, data)
}

func (s *Server) export(ctx context.Context) (*Export, error) {
	var (
		e   = &Export{ExportedAt: time.Now().UTC()}
		err error
	)
	if e.Notifications, err = s.store.ListNotifications(ctx); err != nil {
		return nil, err
	}
	if e.Repositories, err = s.store.ListRepositories(ctx); err != nil {
		return nil, err
	}
	if e.Users, err = s.store.ListUsers(ctx); err != nil {
		return nil, err
	}
	if e.Manga, err = s.store.ListManga(ctx); err != nil {
		return nil, err
	}
	if e.Settings, err = s.store.GetSettings(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

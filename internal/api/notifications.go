// ABOUTME: Notification handlers: list, send, delete and stats
// ABOUTME: Sending persists first and then delivers through the configured dispatcher

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/freegoat/manga-admin/internal/store"
)

type sendNotificationRequest struct {
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Type     store.NotificationType `json:"type"`
	Priority store.Priority         `json:"priority"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListNotifications(r.Context())
	if err != nil {
		s.storeFailure(w, "list notifications", err, "")
		return
	}
	if list == nil {
		list = []*store.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": list})
}

// handleSendNotification stores the notification and hands it to the notifier.
// sent is true only if delivery succeeded; delivery is skipped while
// notifications are disabled in settings.
func (s *Server) handleSendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	n := &store.Notification{
		Title:    req.Title,
		Body:     req.Body,
		Type:     req.Type,
		Priority: req.Priority,
	}
	n.ApplyDefaults()
	if err := n.Validate(); err != nil {
		writeEnvelope(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := s.store.CreateNotification(r.Context(), n); err != nil {
		s.storeFailure(w, "create notification", err, "")
		return
	}

	message := "Notification sent successfully"
	settings, err := s.store.GetSettings(r.Context())
	switch {
	case err != nil:
		s.logger.Error("failed to load settings", "error", err)
		message = "Notification saved but not delivered"
	case !settings.EnableNotifications:
		message = "Notification saved; delivery is disabled in settings"
	default:
		if err := s.notifier.Dispatch(r.Context(), n); err != nil {
			s.logger.Warn("notification delivery failed", "notification_id", n.ID, "error", err)
			message = "Notification saved but delivery failed"
			break
		}
		if err := s.store.MarkNotificationSent(r.Context(), n.ID, true); err != nil {
			s.logger.Error("failed to mark notification sent", "notification_id", n.ID, "error", err)
			break
		}
		n.Sent = true
	}

	s.audit(r, "", store.AuditSendNotification, "notification", n.ID, map[string]any{
		"title": n.Title,
		"sent":  n.Sent,
	})
	writeEnvelope(w, http.StatusOK, message, n)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteNotification(r.Context(), id); err != nil {
		s.storeFailure(w, "delete notification", err, "Notification not found")
		return
	}
	s.audit(r, "", store.AuditDeleteNotification, "notification", id, nil)
	writeEnvelope(w, http.StatusOK, "Notification deleted successfully", nil)
}

func (s *Server) handleNotificationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.NotificationStats(r.Context())
	if err != nil {
		s.storeFailure(w, "notification stats", err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

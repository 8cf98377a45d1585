// ABOUTME: Audit trail writes and the audit log listing endpoint
// ABOUTME: Every mutation records who did what to which entity

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/freegoat/manga-admin/internal/auth"
	"github.com/freegoat/manga-admin/internal/store"
)

// audit appends an entry. Failures are logged and never fail the request.
func (s *Server) audit(r *http.Request, actor string, action store.AuditAction, targetType, targetID string, detail map[string]any) {
	if actor == "" {
		actor = auth.Actor(r.Context())
	}
	// the request context may already be cancelled once the response is written
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
	defer cancel()

	err := s.store.AppendAuditLog(ctx, &store.AuditEntry{
		Actor:      actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
	})
	if err != nil {
		s.logger.Warn("failed to write audit entry", "action", action, "error", err)
	}
}

// handleListAudit handles GET /api/audit.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AuditFilter{
		Actor:      q.Get("actor"),
		Action:     store.AuditAction(q.Get("action")),
		TargetType: q.Get("targetType"),
		TargetID:   q.Get("targetId"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeEnvelope(w, http.StatusBadRequest, "limit must be a non-negative integer", nil)
			return
		}
		filter.Limit = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeEnvelope(w, http.StatusBadRequest, "since must be an RFC3339 timestamp", nil)
			return
		}
		filter.Since = t
	}

	entries, err := s.store.ListAuditLog(r.Context(), filter)
	if err != nil {
		s.storeFailure(w, "list audit log", err, "")
		return
	}
	if entries == nil {
		entries = []*store.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// ABOUTME: Site settings handlers: read and replace the single settings row
// ABOUTME: Partial updates keep fields the request leaves out

package api

import (
	"net/http"
	"strings"

	"github.com/freegoat/manga-admin/internal/store"
)

// settingsUpdate leaves fields the client omitted unchanged.
type settingsUpdate struct {
	SiteName            *string `json:"siteName"`
	SiteDescription     *string `json:"siteDescription"`
	AllowRegistration   *bool   `json:"allowRegistration"`
	EnableNotifications *bool   `json:"enableNotifications"`
	MaintenanceMode     *bool   `json:"maintenanceMode"`
}

func (u settingsUpdate) apply(st *store.Settings) {
	if u.SiteName != nil {
		st.SiteName = strings.TrimSpace(*u.SiteName)
	}
	if u.SiteDescription != nil {
		st.SiteDescription = *u.SiteDescription
	}
	if u.AllowRegistration != nil {
		st.AllowRegistration = *u.AllowRegistration
	}
	if u.EnableNotifications != nil {
		st.EnableNotifications = *u.EnableNotifications
	}
	if u.MaintenanceMode != nil {
		st.MaintenanceMode = *u.MaintenanceMode
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.storeFailure(w, "get settings", err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": st})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var upd settingsUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	st, err := s.store.GetSettings(r.Context())
	if err != nil {
		s.storeFailure(w, "get settings", err, "")
		return
	}
	upd.apply(st)
	if err := s.store.SaveSettings(r.Context(), st); err != nil {
		s.storeFailure(w, "save settings", err, "")
		return
	}

	s.audit(r, "", store.AuditUpdateSettings, "settings", "site", nil)
	writeEnvelope(w, http.StatusOK, "Settings saved successfully", st)
}

// ABOUTME: Dashboard statistics computed from the live tables on every request
// ABOUTME: Nothing is cached; each counter reads its own store aggregate

package api

import (
	"context"
	"net/http"

	"github.com/freegoat/manga-admin/internal/store"
)

// Statistics is the overview panel's payload.
type Statistics struct {
	TotalUsers         int `json:"totalUsers"`
	TotalManga         int `json:"totalManga"`
	TotalChapters      int `json:"totalChapters"`
	TotalDownloads     int `json:"totalDownloads"`
	TotalNotifications int `json:"totalNotifications"`
	SentNotifications  int `json:"sentNotifications"`
	TotalRepositories  int `json:"totalRepositories"`
	ActiveRepositories int `json:"activeRepositories"`
}

// computeStatistics aggregates the store. Downloads are the sum of repository
// source counts since there is no download ledger.
func computeStatistics(ctx context.Context, st store.Store) (*Statistics, error) {
	users, err := st.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	manga, err := st.MangaStats(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := st.NotificationStats(ctx)
	if err != nil {
		return nil, err
	}
	repos, err := st.RepositoryStats(ctx)
	if err != nil {
		return nil, err
	}
	return &Statistics{
		TotalUsers:         users,
		TotalManga:         manga.Total,
		TotalChapters:      manga.Chapters,
		TotalDownloads:     repos.Sources,
		TotalNotifications: notes.Total,
		SentNotifications:  notes.Sent,
		TotalRepositories:  repos.Total,
		ActiveRepositories: repos.Active,
	}, nil
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := computeStatistics(r.Context(), s.store)
	if err != nil {
		s.storeFailure(w, "statistics", err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

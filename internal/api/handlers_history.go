package api

import (
	"net/http"
	"strconv"

	"github.com/curatarr/curatarr/internal/httputil"
)

const defaultHistoryPageSize = 100

// handleWatchHistory lists the mirrored playback records, newest first,
// with the high-water mark so the UI can show when history last synced.
func (s *Server) handleWatchHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.WriteError(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	events, err := s.historyRepo.ListRecent(limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	latest, err := s.historyRepo.LatestEventTime()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events":      events,
		"last_synced": latest,
	})
}

package api

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/curatarr/curatarr/internal/httputil"
	"github.com/curatarr/curatarr/internal/models"
)

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	entries, err := s.scheduleRepo.List()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSaveSchedule(w http.ResponseWriter, r *http.Request) {
	var entry models.ScheduleEntry
	if err := httputil.ReadJSON(r, &entry); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if idStr := r.PathValue("id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid schedule id")
			return
		}
		entry.ID = id
	}
	if !timePattern.MatchString(entry.Time) {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "time must be HH:MM")
		return
	}
	for _, d := range entry.Days {
		if d < 0 || d > 6 {
			httputil.WriteError(w, http.StatusBadRequest, "bad_request", "days must be 0 (Monday) through 6 (Sunday)")
			return
		}
	}
	if err := s.scheduleRepo.Save(&entry); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid schedule id")
		return
	}
	if err := s.scheduleRepo.Delete(id); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsRepo.All()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	// The provider key never leaves the server.
	if _, ok := settings["ai_api_key"]; ok {
		settings["ai_api_key"] = ""
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := httputil.ReadJSON(r, &values); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	for key, value := range values {
		if err := s.settingsRepo.Set(key, value); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"saved": len(values)})
}

package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/curatarr/curatarr/internal/httputil"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/retention"
	"github.com/curatarr/curatarr/internal/sync"
)

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	kind := models.MediaKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = models.KindMovie
	}
	if kind != models.KindMovie && kind != models.KindShow {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "kind must be movie or show")
		return
	}
	items, err := s.mediaRepo.ListByKind(kind)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	item, ok := s.mediaFromPath(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

// actionScores maps the API action names onto scores.
var actionScores = map[string]models.Score{
	"keep":       models.ScoreKeep,
	"delete":     models.ScoreDelete,
	"seasonal":   models.ScoreSeasonal,
	"not_scored": models.ScoreNotScored,
}

type mediaActionRequest struct {
	Action string  `json:"action"`
	IDs    []int64 `json:"ids,omitempty"`
}

func (s *Server) handleMediaAction(w http.ResponseWriter, r *http.Request) {
	item, ok := s.mediaFromPath(w, r)
	if !ok {
		return
	}
	var req mediaActionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	s.applyAction(w, r, req.Action, []*models.MediaItem{item})
}

func (s *Server) handleBulkMediaAction(w http.ResponseWriter, r *http.Request) {
	var req mediaActionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "ids is required")
		return
	}
	items, err := s.mediaRepo.ListByIDs(req.IDs)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if len(items) == 0 {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "no matching media items")
		return
	}
	s.applyAction(w, r, req.Action, items)
}

// applyAction moves items to the requested score locally and then pushes
// the full canonical label state remotely, one bulk pair per kind. The
// remote push is best-effort: the next sync reconciles anything missed.
func (s *Server) applyAction(w http.ResponseWriter, r *http.Request, action string, items []*models.MediaItem) {
	if action == "reset_grace" {
		s.applyResetGrace(w, items)
		return
	}
	score, ok := actionScores[action]
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "unknown action "+action)
		return
	}
	if score == models.ScoreSeasonal {
		for _, item := range items {
			if item.Kind != models.KindShow {
				httputil.WriteError(w, http.StatusBadRequest, "bad_request", "seasonal applies to shows only")
				return
			}
		}
	}

	now := time.Now()
	byKind := map[models.MediaKind][]int64{}
	for _, item := range items {
		grace := s.graceDays(item.Kind)
		retention.Transition(item, score, now, grace)
		if err := s.mediaRepo.Save(item); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
		byKind[item.Kind] = append(byKind[item.Kind], item.RemoteID)
	}

	add, remove := retention.CanonicalLabels(score)
	for kind, ids := range byKind {
		client, err := s.arrClient(kind)
		if err != nil {
			log.Printf("API: label push skipped for %s: %v", kind, err)
			continue
		}
		if err := sync.PushLabels(r.Context(), client, kind, ids, add, remove); err != nil {
			log.Printf("API: label push failed for %s: %v", kind, err)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"updated": len(items), "score": score})
}

// applyResetGrace restarts the countdown for every Delete-marked item in
// the selection; items not marked are counted but left alone.
func (s *Server) applyResetGrace(w http.ResponseWriter, items []*models.MediaItem) {
	now := time.Now()
	reset := 0
	for _, item := range items {
		if !retention.ResetGrace(item, now, s.graceDays(item.Kind)) {
			continue
		}
		if err := s.mediaRepo.Save(item); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
		reset++
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"reset": reset, "skipped": len(items) - reset})
}

// handleDeleteNow removes one item immediately, skipping the grace period.
// Remote first, local second, same order as the scheduled purge.
func (s *Server) handleDeleteNow(w http.ResponseWriter, r *http.Request) {
	item, ok := s.mediaFromPath(w, r)
	if !ok {
		return
	}
	client, err := s.arrClient(item.Kind)
	if err != nil {
		httputil.WriteError(w, http.StatusConflict, "not_configured", err.Error())
		return
	}
	if err := client.DeleteItem(r.Context(), item.Kind, item.RemoteID); err != nil {
		httputil.WriteError(w, http.StatusBadGateway, "remote_error", err.Error())
		return
	}
	if err := s.mediaRepo.Delete(item.ID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	log.Printf("API: deleted %s %q on request", item.Kind, item.Title)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": item.Title})
}

func (s *Server) handleResetGrace(w http.ResponseWriter, r *http.Request) {
	item, ok := s.mediaFromPath(w, r)
	if !ok {
		return
	}
	if !retention.ResetGrace(item, time.Now(), s.graceDays(item.Kind)) {
		httputil.WriteError(w, http.StatusConflict, "not_marked", "item is not marked for deletion")
		return
	}
	if err := s.mediaRepo.Save(item); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (s *Server) mediaFromPath(w http.ResponseWriter, r *http.Request) (*models.MediaItem, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid media id")
		return nil, false
	}
	item, err := s.mediaRepo.GetByID(id)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "db_error", err.Error())
		return nil, false
	}
	if item == nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "media item not found")
		return nil, false
	}
	return item, true
}

func (s *Server) graceDays(kind models.MediaKind) int {
	conn, err := s.connRepo.GetByName(kind.ConnectionName())
	if err != nil || conn == nil {
		return retention.DefaultGraceDays
	}
	return conn.GraceDays
}

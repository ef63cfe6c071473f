package api

import (
	"errors"
	"net/http"

	"github.com/curatarr/curatarr/internal/httputil"
	"github.com/curatarr/curatarr/internal/jobs"
)

type syncRequest struct {
	FullSync bool `json:"full_sync"`
}

func (s *Server) handleSyncMovies(w http.ResponseWriter, r *http.Request) {
	s.enqueueSync(w, r, jobs.TaskSyncMovies)
}

func (s *Server) handleSyncShows(w http.ResponseWriter, r *http.Request) {
	s.enqueueSync(w, r, jobs.TaskSyncShows)
}

func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	s.enqueueSync(w, r, jobs.TaskSyncHistory)
}

func (s *Server) enqueueSync(w http.ResponseWriter, r *http.Request, taskType string) {
	var req syncRequest
	if err := httputil.ReadJSONOptional(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	s.enqueue(w, taskType, jobs.SyncPayload{FullSync: req.FullSync})
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	s.enqueue(w, jobs.TaskPurge, struct{}{})
}

func (s *Server) handleVacuum(w http.ResponseWriter, r *http.Request) {
	s.enqueue(w, jobs.TaskVacuum, struct{}{})
}

type aiRequest struct {
	Resume bool `json:"resume"`
	Reset  bool `json:"reset"`
}

func (s *Server) handleAILearn(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "unknown media kind")
		return
	}
	s.enqueue(w, jobs.TaskAILearn, jobs.AIPayload{Kind: kind})
}

func (s *Server) handleAIScore(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(r)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "unknown media kind")
		return
	}
	var req aiRequest
	if err := httputil.ReadJSONOptional(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	s.enqueue(w, jobs.TaskAIScore, jobs.AIPayload{Kind: kind, Resume: req.Resume, Reset: req.Reset})
}

func (s *Server) enqueue(w http.ResponseWriter, taskType string, payload interface{}) {
	jobID, err := s.queue.Enqueue(taskType, payload)
	if err != nil {
		if errors.Is(err, jobs.ErrJobAlreadyRunning) {
			httputil.WriteError(w, http.StatusConflict, "job_running", err.Error())
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "queue_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.queue.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "queue_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

func (s *Server) handleJobStop(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if err := s.queue.RequestStop(r.Context(), jobID); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "queue_error", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"job_id": jobID, "status": "stop requested"})
}

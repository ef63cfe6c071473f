// Package api exposes the HTTP control surface: sync and AI job triggers,
// job polling and stopping, per-item retention actions, rule and proposal
// review, schedules, and settings.
package api

import (
	"fmt"
	"net/http"

	"github.com/curatarr/curatarr/internal/arr"
	"github.com/curatarr/curatarr/internal/config"
	"github.com/curatarr/curatarr/internal/db"
	"github.com/curatarr/curatarr/internal/jobs"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/repository"
)

type Server struct {
	config       *config.Config
	db           *db.DB
	mediaRepo    *repository.MediaRepository
	connRepo     *repository.ConnectionRepository
	historyRepo  *repository.HistoryRepository
	scheduleRepo *repository.ScheduleRepository
	settingsRepo *repository.SettingsRepository
	queue        *jobs.Queue
	router       *http.ServeMux
}

func NewServer(cfg *config.Config, database *db.DB, queue *jobs.Queue) *Server {
	s := &Server{
		config:       cfg,
		db:           database,
		mediaRepo:    repository.NewMediaRepository(database.DB),
		connRepo:     repository.NewConnectionRepository(database.DB),
		historyRepo:  repository.NewHistoryRepository(database.DB),
		scheduleRepo: repository.NewScheduleRepository(database.DB),
		settingsRepo: repository.NewSettingsRepository(database.DB),
		queue:        queue,
		router:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /health", s.handleHealth)

	s.router.HandleFunc("GET /api/v1/media", s.handleListMedia)
	s.router.HandleFunc("GET /api/v1/media/{id}", s.handleGetMedia)
	s.router.HandleFunc("POST /api/v1/media/{id}/action", s.handleMediaAction)
	s.router.HandleFunc("POST /api/v1/media/action/bulk", s.handleBulkMediaAction)
	s.router.HandleFunc("POST /api/v1/media/{id}/delete-now", s.handleDeleteNow)
	s.router.HandleFunc("POST /api/v1/media/{id}/reset-grace", s.handleResetGrace)

	s.router.HandleFunc("POST /api/v1/sync/movies", s.handleSyncMovies)
	s.router.HandleFunc("POST /api/v1/sync/shows", s.handleSyncShows)
	s.router.HandleFunc("POST /api/v1/sync/history", s.handleSyncHistory)
	s.router.HandleFunc("GET /api/v1/history", s.handleWatchHistory)
	s.router.HandleFunc("POST /api/v1/purge", s.handlePurge)
	s.router.HandleFunc("POST /api/v1/vacuum", s.handleVacuum)
	s.router.HandleFunc("GET /api/v1/jobs/{id}", s.handleJobStatus)
	s.router.HandleFunc("POST /api/v1/jobs/{id}/stop", s.handleJobStop)

	s.router.HandleFunc("POST /api/v1/ai/{kind}/learn", s.handleAILearn)
	s.router.HandleFunc("POST /api/v1/ai/{kind}/score", s.handleAIScore)

	s.router.HandleFunc("GET /api/v1/connections", s.handleListConnections)
	s.router.HandleFunc("PUT /api/v1/connections/{name}", s.handleSaveConnection)
	s.router.HandleFunc("PUT /api/v1/connections/{name}/rules", s.handleSaveRules)
	s.router.HandleFunc("GET /api/v1/connections/{name}/proposals", s.handleGetProposals)
	s.router.HandleFunc("POST /api/v1/connections/{name}/proposals/{id}", s.handleApplyProposal)

	s.router.HandleFunc("GET /api/v1/schedules", s.handleListSchedules)
	s.router.HandleFunc("POST /api/v1/schedules", s.handleSaveSchedule)
	s.router.HandleFunc("PUT /api/v1/schedules/{id}", s.handleSaveSchedule)
	s.router.HandleFunc("DELETE /api/v1/schedules/{id}", s.handleDeleteSchedule)

	s.router.HandleFunc("GET /api/v1/settings", s.handleGetSettings)
	s.router.HandleFunc("PUT /api/v1/settings", s.handleSaveSettings)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// arrClient builds a library client for the kind, erroring when the
// connection is missing or incomplete.
func (s *Server) arrClient(kind models.MediaKind) (*arr.Client, error) {
	conn, err := s.connRepo.GetByName(kind.ConnectionName())
	if err != nil {
		return nil, err
	}
	if conn == nil || conn.URL == "" || conn.APIKey == "" {
		return nil, fmt.Errorf("%s is not configured", kind.ConnectionName())
	}
	client := arr.New(conn)
	if verbose, err := s.settingsRepo.GetBool(repository.SettingVerboseLogging); err == nil {
		client.SetVerbose(verbose)
	}
	return client, nil
}

// kindFromPath resolves the {kind} path segment, accepting the media kind
// names and the service names as aliases.
func kindFromPath(r *http.Request) (models.MediaKind, bool) {
	switch r.PathValue("kind") {
	case "movie", "movies", "radarr":
		return models.KindMovie, true
	case "show", "shows", "series", "sonarr":
		return models.KindShow, true
	}
	return "", false
}

package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/curatarr/curatarr/internal/arr"
	"github.com/curatarr/curatarr/internal/db"
	"github.com/curatarr/curatarr/internal/deletion"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/repository"
)

// PurgeHandler deletes items whose grace period has run out.
type PurgeHandler struct {
	media       *repository.MediaRepository
	connections *repository.ConnectionRepository
	settings    *repository.SettingsRepository
	meta        *MetaStore
}

func NewPurgeHandler(media *repository.MediaRepository, connections *repository.ConnectionRepository, settings *repository.SettingsRepository, meta *MetaStore) *PurgeHandler {
	return &PurgeHandler{media: media, connections: connections, settings: settings, meta: meta}
}

func (h *PurgeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	beginJob(ctx, h.meta)

	verbose, err := h.settings.GetBool(repository.SettingVerboseLogging)
	if err != nil {
		return err
	}

	clients := make(map[models.MediaKind]deletion.RemoteDeleter)
	for _, kind := range []models.MediaKind{models.KindMovie, models.KindShow} {
		conn, err := h.connections.GetByName(kind.ConnectionName())
		if err != nil {
			return err
		}
		if conn == nil || conn.URL == "" || conn.APIKey == "" {
			continue
		}
		client := arr.New(conn)
		client.SetVerbose(verbose)
		clients[kind] = client
	}
	if len(clients) == 0 {
		return errorResult(t, "no library connections configured")
	}

	p := &deletion.Purger{Clients: clients, Store: h.media}
	result, err := p.Run(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	log.Printf("Job: purge removed %d movies and %d shows (%d failed)", result.MoviesPurged, result.ShowsPurged, result.Failed)
	writeResult(t, map[string]interface{}{
		"status":        "Completed",
		"movies_purged": result.MoviesPurged,
		"shows_purged":  result.ShowsPurged,
		"failed":        result.Failed,
	})
	return nil
}

// VacuumHandler reclaims dead tuples left behind by the churny sync and
// scoring passes.
type VacuumHandler struct {
	db   *db.DB
	meta *MetaStore
}

func NewVacuumHandler(database *db.DB, meta *MetaStore) *VacuumHandler {
	return &VacuumHandler{db: database, meta: meta}
}

func (h *VacuumHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	beginJob(ctx, h.meta)
	start := time.Now()
	if _, err := h.db.ExecContext(ctx, "VACUUM ANALYZE"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	log.Printf("Job: vacuum finished in %s", time.Since(start).Round(time.Millisecond))
	writeResult(t, map[string]string{"status": "Completed"})
	return nil
}

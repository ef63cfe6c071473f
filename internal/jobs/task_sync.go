package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/curatarr/curatarr/internal/arr"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/repository"
	"github.com/curatarr/curatarr/internal/sync"
	"github.com/curatarr/curatarr/internal/tmdb"
)

// SyncPayload selects the depth of a library sync. A full sync re-fetches
// metadata and posters for every item; a quick sync only fills gaps.
type SyncPayload struct {
	FullSync bool `json:"full_sync"`
}

// SyncHandler serves both sync:movies and sync:shows; the task type picks
// the kind.
type SyncHandler struct {
	media       *repository.MediaRepository
	connections *repository.ConnectionRepository
	settings    *repository.SettingsRepository
	meta        *MetaStore
	dataDir     string
}

func NewSyncHandler(media *repository.MediaRepository, connections *repository.ConnectionRepository, settings *repository.SettingsRepository, meta *MetaStore, dataDir string) *SyncHandler {
	return &SyncHandler{media: media, connections: connections, settings: settings, meta: meta, dataDir: dataDir}
}

func (h *SyncHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p SyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	kind := models.KindMovie
	if t.Type() == TaskSyncShows {
		kind = models.KindShow
	}

	jobID := beginJob(ctx, h.meta)

	conn, err := h.connections.GetByName(kind.ConnectionName())
	if err != nil {
		return err
	}
	if conn == nil || conn.URL == "" || conn.APIKey == "" {
		return errorResult(t, kind.ConnectionName()+" is not configured")
	}

	verbose, err := h.settings.GetBool(repository.SettingVerboseLogging)
	if err != nil {
		return err
	}
	client := arr.New(conn)
	client.SetVerbose(verbose)

	var assets sync.AssetFetcher
	if key, err := h.settings.Get(repository.SettingTMDBAPIKey); err != nil {
		return err
	} else if key != "" {
		assets = tmdb.New(key, h.dataDir)
	}

	log.Printf("Job: %s sync starting (full=%v)", kind, p.FullSync)
	r := &sync.Reconciler{
		Kind:      kind,
		Client:    client,
		Store:     h.media,
		Assets:    assets,
		GraceDays: conn.GraceDays,
		FullSync:  p.FullSync,
		ShouldStop: func() bool {
			return h.meta.StopRequested(ctx, jobID)
		},
	}
	var tracker *Tracker
	r.Progress = func(done, total int) {
		if tracker == nil {
			tracker = NewTracker(total, func(percent int, eta string) {
				h.meta.SetProgress(ctx, jobID, percent, eta)
			})
		}
		tracker.Tick(done)
	}

	result, err := r.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s sync: %w", kind, err)
	}

	status := "Completed"
	if result.Stopped {
		status = "Stopped"
	}
	log.Printf("Job: %s sync %s: %d items, %d added, %d label pushes", kind, status, result.Total, result.Added, result.TagsPushed)
	writeResult(t, map[string]interface{}{
		"status":      status,
		"total":       result.Total,
		"added":       result.Added,
		"updated":     result.Updated,
		"tags_pushed": result.TagsPushed,
	})
	return nil
}

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/curatarr/curatarr/internal/arr"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/repository"
	"github.com/curatarr/curatarr/internal/retention"
	"github.com/curatarr/curatarr/internal/sync"
	"github.com/curatarr/curatarr/internal/tautulli"
)

const (
	quickHistoryLength = 1000
	fullHistoryLength  = 100000
)

// HistoryHandler mirrors the playback history and runs the rescue sweep:
// anything watched inside the retention window is promoted to the
// watched-keep score, and watched-keep items that fell out of the window
// drop back to unscored.
type HistoryHandler struct {
	media       *repository.MediaRepository
	history     *repository.HistoryRepository
	connections *repository.ConnectionRepository
	settings    *repository.SettingsRepository
	meta        *MetaStore
}

func NewHistoryHandler(media *repository.MediaRepository, history *repository.HistoryRepository, connections *repository.ConnectionRepository, settings *repository.SettingsRepository, meta *MetaStore) *HistoryHandler {
	return &HistoryHandler{media: media, history: history, connections: connections, settings: settings, meta: meta}
}

func (h *HistoryHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p SyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	jobID := beginJob(ctx, h.meta)

	conn, err := h.connections.GetByName("tautulli")
	if err != nil {
		return err
	}
	if conn == nil || conn.URL == "" || conn.APIKey == "" {
		return errorResult(t, "tautulli is not configured")
	}
	verbose, err := h.settings.GetBool(repository.SettingVerboseLogging)
	if err != nil {
		return err
	}
	client := tautulli.New(conn)
	client.SetVerbose(verbose)

	length := quickHistoryLength
	if p.FullSync {
		length = fullHistoryLength
	}
	retentionDays := conn.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 365
	}
	after := time.Now().AddDate(0, 0, -retentionDays)

	items, err := client.GetHistory(ctx, after, length)
	if err != nil {
		return fmt.Errorf("fetch watch history: %w", err)
	}
	log.Printf("Job: history sync fetched %d events", len(items))

	watched := make(map[string]bool, len(items))
	tracker := NewTracker(len(items), func(percent int, eta string) {
		h.meta.SetProgress(ctx, jobID, percent, eta)
	})
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		watched[item.FullTitle] = true
		event := &models.WatchEvent{
			RowID:        item.ID,
			Title:        item.FullTitle,
			User:         item.User,
			WatchedAt:    time.Unix(item.Date, 0),
			State:        item.State,
			DurationMins: item.DurationSeconds / 60,
		}
		if err := h.history.UpsertEvent(event); err != nil {
			return err
		}
		tracker.Tick(i + 1)
	}

	stopped := false
	rescued := map[models.MediaKind][]int64{}
	for _, kind := range []models.MediaKind{models.KindMovie, models.KindShow} {
		ids, s, err := h.sweep(ctx, jobID, kind, watched, conn.GraceDays)
		if err != nil {
			return err
		}
		rescued[kind] = ids
		if s {
			stopped = true
			break
		}
	}

	// Rescued items get their labels corrected immediately instead of
	// waiting for the next library sync, so a delete tag never lingers on
	// something someone just watched.
	for kind, ids := range rescued {
		if len(ids) == 0 {
			continue
		}
		if err := h.pushRescued(ctx, kind, ids); err != nil {
			log.Printf("Job: history sweep label push failed for %s: %v", kind, err)
		}
	}

	status := "Completed"
	if stopped {
		status = "Stopped"
	}
	writeResult(t, map[string]interface{}{
		"status":         status,
		"history_synced": len(items),
		"rescued_movies": len(rescued[models.KindMovie]),
		"rescued_shows":  len(rescued[models.KindShow]),
	})
	return nil
}

// sweep reclassifies one kind against the watched-title set. Keep and, for
// shows, Seasonal stay untouched; those are deliberate human or rule
// decisions the history must not override.
func (h *HistoryHandler) sweep(ctx context.Context, jobID string, kind models.MediaKind, watched map[string]bool, graceDays int) ([]int64, bool, error) {
	items, err := h.media.ListByKind(kind)
	if err != nil {
		return nil, false, err
	}
	var rescued []int64
	for _, item := range items {
		if h.meta.StopRequested(ctx, jobID) {
			return rescued, true, nil
		}
		if item.Score == models.ScoreKeep {
			continue
		}
		if kind == models.KindShow && item.Score == models.ScoreSeasonal {
			continue
		}

		if watched[item.Title] {
			if item.Score == models.ScoreWatchedKeep {
				continue
			}
			retention.Transition(item, models.ScoreWatchedKeep, time.Now(), graceDays)
			if err := h.media.Save(item); err != nil {
				return rescued, false, err
			}
			rescued = append(rescued, item.RemoteID)
		} else if item.Score == models.ScoreWatchedKeep {
			retention.Transition(item, models.ScoreNotScored, time.Now(), graceDays)
			if err := h.media.Save(item); err != nil {
				return rescued, false, err
			}
			// The next library sync clears the remote label.
		}
	}
	return rescued, false, nil
}

func (h *HistoryHandler) pushRescued(ctx context.Context, kind models.MediaKind, ids []int64) error {
	conn, err := h.connections.GetByName(kind.ConnectionName())
	if err != nil {
		return err
	}
	if conn == nil || conn.URL == "" {
		return nil
	}
	add := []retention.Label{retention.LabelWatchedKeep}
	remove := []retention.Label{retention.LabelDelete}
	return sync.PushLabels(ctx, arr.New(conn), kind, ids, add, remove)
}

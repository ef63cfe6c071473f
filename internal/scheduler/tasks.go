package scheduler

import (
	"github.com/hibiken/asynq"

	"github.com/curatarr/curatarr/internal/jobs"
	"github.com/curatarr/curatarr/internal/models"
)

// Task identifiers usable in schedule entries.
const (
	TaskRadarrQuickSync       = "radarr_quick_sync"
	TaskRadarrFullSync        = "radarr_full_sync"
	TaskRadarrAnalyze         = "radarr_analyze"
	TaskRadarrContinueScoring = "radarr_continue_scoring"
	TaskRadarrRescore         = "radarr_rescore"
	TaskSonarrQuickSync       = "sonarr_quick_sync"
	TaskSonarrFullSync        = "sonarr_full_sync"
	TaskSonarrAnalyze         = "sonarr_analyze"
	TaskSonarrContinueScoring = "sonarr_continue_scoring"
	TaskSonarrRescore         = "sonarr_rescore"
	TaskTautulliSync          = "tautulli_sync"
	TaskSystemPurge           = "system_purge"
	TaskSystemVacuum          = "system_vacuum"
)

// Enqueuer is the queue surface the schedule actions need.
type Enqueuer interface {
	Enqueue(taskType string, payload interface{}, opts ...asynq.Option) (string, error)
}

// RegisterDefaultTasks wires every known task identifier to its queue
// call. Gated enqueues that lose to a running job return the queue's
// error, which tick logs and moves past; the entry fires again on its
// next scheduled slot.
func RegisterDefaultTasks(s *Scheduler, q Enqueuer) {
	enqueue := func(taskType string, payload interface{}) TaskFunc {
		return func() error {
			_, err := q.Enqueue(taskType, payload)
			return err
		}
	}

	s.Register(TaskRadarrQuickSync, enqueue(jobs.TaskSyncMovies, jobs.SyncPayload{}))
	s.Register(TaskRadarrFullSync, enqueue(jobs.TaskSyncMovies, jobs.SyncPayload{FullSync: true}))
	s.Register(TaskRadarrAnalyze, enqueue(jobs.TaskAILearn, jobs.AIPayload{Kind: models.KindMovie}))
	s.Register(TaskRadarrContinueScoring, enqueue(jobs.TaskAIScore, jobs.AIPayload{Kind: models.KindMovie, Resume: true}))
	s.Register(TaskRadarrRescore, enqueue(jobs.TaskAIScore, jobs.AIPayload{Kind: models.KindMovie, Reset: true}))

	s.Register(TaskSonarrQuickSync, enqueue(jobs.TaskSyncShows, jobs.SyncPayload{}))
	s.Register(TaskSonarrFullSync, enqueue(jobs.TaskSyncShows, jobs.SyncPayload{FullSync: true}))
	s.Register(TaskSonarrAnalyze, enqueue(jobs.TaskAILearn, jobs.AIPayload{Kind: models.KindShow}))
	s.Register(TaskSonarrContinueScoring, enqueue(jobs.TaskAIScore, jobs.AIPayload{Kind: models.KindShow, Resume: true}))
	s.Register(TaskSonarrRescore, enqueue(jobs.TaskAIScore, jobs.AIPayload{Kind: models.KindShow, Reset: true}))

	s.Register(TaskTautulliSync, enqueue(jobs.TaskSyncHistory, jobs.SyncPayload{}))
	s.Register(TaskSystemPurge, enqueue(jobs.TaskPurge, struct{}{}))
	s.Register(TaskSystemVacuum, enqueue(jobs.TaskVacuum, struct{}{}))
}

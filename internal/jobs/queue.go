// Package jobs runs the background work: library sync, watch-history
// sweeps, the AI learning and scoring passes, purges, and maintenance.
// Everything goes through one asynq queue with a single worker so only
// one job touches the remote services at a time.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TaskSyncMovies  = "sync:movies"
	TaskSyncShows   = "sync:shows"
	TaskSyncHistory = "sync:history"
	TaskAILearn     = "ai:learn"
	TaskAIScore     = "ai:score"
	TaskPurge       = "maintenance:purge"
	TaskVacuum      = "maintenance:vacuum"
)

// ErrJobAlreadyRunning rejects a gated enqueue while another gated job is
// active, so two passes never interleave editor calls against a service.
var ErrJobAlreadyRunning = errors.New("another job is already running")

// gatedTasks share the remote services and are mutually exclusive. The AI
// passes only talk to the model provider and skip the gate; the single
// worker still serializes their execution.
var gatedTasks = map[string]bool{
	TaskSyncMovies:  true,
	TaskSyncShows:   true,
	TaskSyncHistory: true,
	TaskPurge:       true,
	TaskVacuum:      true,
}

const queueName = "default"

// taskTimeouts bound each job class. Generous: a full-library sync or an
// overnight scoring pass is slow by nature, and asynq kills the context
// at the deadline.
var taskTimeouts = map[string]time.Duration{
	TaskSyncMovies:  time.Hour,
	TaskSyncShows:   time.Hour,
	TaskSyncHistory: 15 * time.Minute,
	TaskAILearn:     6 * time.Hour,
	TaskAIScore:     6 * time.Hour,
	TaskPurge:       30 * time.Minute,
	TaskVacuum:      30 * time.Minute,
}

type Queue struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	inspector *asynq.Inspector
	meta      *MetaStore
}

func NewQueue(redisAddr string) *Queue {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 1,
			Queues:      map[string]int{queueName: 1},
		},
	)
	return &Queue{
		client:    asynq.NewClient(redisOpt),
		server:    server,
		mux:       asynq.NewServeMux(),
		inspector: asynq.NewInspector(redisOpt),
		meta:      NewMetaStore(redisAddr),
	}
}

func (q *Queue) Meta() *MetaStore { return q.meta }

func (q *Queue) RegisterHandler(taskType string, handler asynq.Handler) {
	q.mux.Handle(taskType, handler)
}

// Enqueue queues one task and returns its job ID. Gated task types are
// refused with ErrJobAlreadyRunning while any gated job is active or
// waiting.
func (q *Queue) Enqueue(taskType string, payload interface{}, opts ...asynq.Option) (string, error) {
	if gatedTasks[taskType] {
		busy, err := q.gatedJobRunning()
		if err != nil {
			return "", err
		}
		if busy {
			return "", ErrJobAlreadyRunning
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	jobID := uuid.NewString()
	opts = append(opts, asynq.TaskID(jobID), asynq.MaxRetry(0), asynq.Retention(metaTTL))
	if timeout, ok := taskTimeouts[taskType]; ok {
		opts = append(opts, asynq.Timeout(timeout))
	}
	task := asynq.NewTask(taskType, data, opts...)
	info, err := q.client.Enqueue(task)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	log.Printf("Queue: enqueued %s as job %s", taskType, info.ID)
	return info.ID, nil
}

func (q *Queue) gatedJobRunning() (bool, error) {
	active, err := q.inspector.ListActiveTasks(queueName)
	if err != nil {
		return false, fmt.Errorf("inspect active tasks: %w", err)
	}
	pending, err := q.inspector.ListPendingTasks(queueName)
	if err != nil {
		return false, fmt.Errorf("inspect pending tasks: %w", err)
	}
	for _, t := range append(active, pending...) {
		if gatedTasks[t.Type] {
			return true, nil
		}
	}
	return false, nil
}

// JobStatus is the polling view of one job.
type JobStatus struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Progress int             `json:"progress"`
	ETA      string          `json:"eta,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// Status reports a job's state plus its live progress meta. An unknown ID
// reads as finished: retention on completed tasks expires, and a poller
// holding an expired ID should stop polling, not error.
func (q *Queue) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	info, err := q.inspector.GetTaskInfo(queueName, jobID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) {
			return &JobStatus{ID: jobID, Status: "finished", Progress: 100}, nil
		}
		return nil, fmt.Errorf("get task info: %w", err)
	}

	status := &JobStatus{ID: jobID}
	switch info.State {
	case asynq.TaskStateActive:
		status.Status = "started"
	case asynq.TaskStatePending, asynq.TaskStateScheduled, asynq.TaskStateRetry, asynq.TaskStateAggregating:
		status.Status = "queued"
	case asynq.TaskStateCompleted:
		status.Status = "finished"
		status.Progress = 100
		status.Result = info.Result
	case asynq.TaskStateArchived:
		status.Status = "failed"
	default:
		status.Status = "unknown"
	}
	if status.Status == "started" {
		status.Progress, status.ETA = q.meta.GetProgress(ctx, jobID)
	}
	return status, nil
}

// RequestStop raises the cooperative stop flag for a job. Handlers notice
// between items and wind down, flushing whatever they already decided.
func (q *Queue) RequestStop(ctx context.Context, jobID string) error {
	return q.meta.RequestStop(ctx, jobID)
}

func (q *Queue) Start() error {
	log.Println("Queue: worker starting")
	return q.server.Start(q.mux)
}

func (q *Queue) Stop() {
	q.server.Shutdown()
	q.client.Close()
	q.inspector.Close()
	q.meta.Close()
}

package jobs

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

// writeResult stores the handler's summary for pollers. Failures here are
// logged only; a finished pass is not failed over its status payload.
func writeResult(t *asynq.Task, result interface{}) {
	if t.ResultWriter() == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		log.Printf("Job: marshal result: %v", err)
		return
	}
	if _, err := t.ResultWriter().Write(data); err != nil {
		log.Printf("Job: write result: %v", err)
	}
}

// errorResult is the terminal payload for jobs that cannot start, like a
// missing service connection. The job itself completes so the poller gets
// the message instead of a retry loop.
func errorResult(t *asynq.Task, msg string) error {
	log.Printf("Job: %s: %s", t.Type(), msg)
	writeResult(t, map[string]string{"error": msg})
	return nil
}

// beginJob resolves the job ID and clears any stale stop flag left over
// from a previous run.
func beginJob(ctx context.Context, meta *MetaStore) string {
	jobID, _ := asynq.GetTaskID(ctx)
	if jobID != "" {
		meta.ClearStop(ctx, jobID)
	}
	return jobID
}

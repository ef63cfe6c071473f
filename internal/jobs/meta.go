package jobs

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	metaKeyPrefix = "curatarr:job:"
	metaTTL       = 24 * time.Hour
)

// MetaStore keeps mutable per-job state in Redis next to the queue itself:
// live progress/ETA for polling, and the cooperative stop flag handlers
// check between items.
type MetaStore struct {
	rdb *redis.Client
}

func NewMetaStore(redisAddr string) *MetaStore {
	return &MetaStore{rdb: redis.NewClient(&redis.Options{Addr: redisAddr})}
}

func (m *MetaStore) Close() error { return m.rdb.Close() }

func metaKey(jobID string) string { return metaKeyPrefix + jobID + ":meta" }
func stopKey(jobID string) string { return metaKeyPrefix + jobID + ":stop" }

// SetProgress records progress as a 0-100 percentage plus an "MM:SS" ETA.
func (m *MetaStore) SetProgress(ctx context.Context, jobID string, percent int, eta string) {
	key := metaKey(jobID)
	m.rdb.HSet(ctx, key, "progress", percent, "eta", eta)
	m.rdb.Expire(ctx, key, metaTTL)
}

// GetProgress returns the recorded percentage and ETA, zero values when the
// job never reported.
func (m *MetaStore) GetProgress(ctx context.Context, jobID string) (int, string) {
	vals, err := m.rdb.HGetAll(ctx, metaKey(jobID)).Result()
	if err != nil || len(vals) == 0 {
		return 0, ""
	}
	percent, _ := strconv.Atoi(vals["progress"])
	return percent, vals["eta"]
}

// RequestStop raises the cooperative stop flag for a running job.
func (m *MetaStore) RequestStop(ctx context.Context, jobID string) error {
	return m.rdb.Set(ctx, stopKey(jobID), "1", metaTTL).Err()
}

// StopRequested reports whether a stop has been requested. Errors read as
// false so a Redis hiccup never aborts a pass mid-flight.
func (m *MetaStore) StopRequested(ctx context.Context, jobID string) bool {
	n, err := m.rdb.Exists(ctx, stopKey(jobID)).Result()
	return err == nil && n > 0
}

// ClearStop removes any stale flag. Handlers call this on entry so a flag
// raised against a finished job cannot kill the next one.
func (m *MetaStore) ClearStop(ctx context.Context, jobID string) {
	m.rdb.Del(ctx, stopKey(jobID))
}

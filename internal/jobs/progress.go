package jobs

import (
	"fmt"
	"time"
)

// Tracker turns per-item loop progress into throttled percent/ETA reports.
// The ETA extrapolates linearly from elapsed time over completed fraction,
// the same estimate a user watching the progress bar would make.
type Tracker struct {
	total  int
	report func(percent int, eta string)
	now    func() time.Time
	start  time.Time
	last   time.Time
}

// NewTracker reports through fn, at most once per second plus once at the
// end, so a tight loop over a big library does not hammer Redis.
func NewTracker(total int, fn func(percent int, eta string)) *Tracker {
	return newTrackerAt(total, fn, time.Now)
}

func newTrackerAt(total int, fn func(percent int, eta string), now func() time.Time) *Tracker {
	t := &Tracker{total: total, report: fn, now: now}
	t.start = now()
	return t
}

// Tick records that done items are complete.
func (t *Tracker) Tick(done int) {
	if t.total <= 0 || t.report == nil {
		return
	}
	now := t.now()
	if done < t.total && now.Sub(t.last) < time.Second {
		return
	}
	t.last = now
	t.report(done*100/t.total, EstimateETA(now.Sub(t.start), done, t.total))
}

// EstimateETA projects time remaining from elapsed time and completed
// count, formatted "MM:SS". Unknown estimates come back as "--:--".
func EstimateETA(elapsed time.Duration, done, total int) string {
	if done <= 0 || total <= 0 || done > total {
		return "--:--"
	}
	remaining := time.Duration(float64(elapsed) / float64(done) * float64(total-done))
	secs := int(remaining.Round(time.Second).Seconds())
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

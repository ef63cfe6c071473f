package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimateETA(t *testing.T) {
	// 30s for 25 of 100 items leaves 90s of work.
	assert.Equal(t, "01:30", EstimateETA(30*time.Second, 25, 100))
	assert.Equal(t, "00:00", EstimateETA(time.Minute, 100, 100))
	assert.Equal(t, "--:--", EstimateETA(time.Minute, 0, 100))
	assert.Equal(t, "--:--", EstimateETA(time.Minute, 5, 0))
}

func TestTrackerThrottlesReports(t *testing.T) {
	clock := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	var reports []int
	tr := newTrackerAt(10, func(percent int, eta string) {
		reports = append(reports, percent)
	}, now)

	clock = clock.Add(100 * time.Millisecond)
	tr.Tick(1) // first report goes out
	clock = clock.Add(100 * time.Millisecond)
	tr.Tick(2) // suppressed, under a second since last
	clock = clock.Add(time.Second)
	tr.Tick(3)  // reported
	tr.Tick(10) // final tick always reported

	assert.Equal(t, []int{10, 30, 100}, reports)
}

func TestTrackerETAValue(t *testing.T) {
	clock := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	var lastETA string
	tr := newTrackerAt(4, func(percent int, eta string) { lastETA = eta }, now)

	clock = clock.Add(10 * time.Second)
	tr.Tick(1)
	assert.Equal(t, "00:30", lastETA)
}

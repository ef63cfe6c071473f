package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/curatarr/curatarr/internal/models"
)

type fakeStore struct {
	entries []*models.ScheduleEntry
	stamped []int64
}

func (f *fakeStore) ListEnabledAt(hhmm string) ([]*models.ScheduleEntry, error) {
	var out []*models.ScheduleEntry
	for _, e := range f.entries {
		if e.Time == hhmm {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) StampLastRun(id int64, at time.Time) error {
	f.stamped = append(f.stamped, id)
	for _, e := range f.entries {
		if e.ID == id {
			t := at
			e.LastRun = &t
		}
	}
	return nil
}

// 2026-08-03 is a Monday, day 0 in schedule entries.
var monday = time.Date(2026, 8, 3, 3, 30, 0, 0, time.UTC)

func newTestScheduler(store *fakeStore, now time.Time) (*Scheduler, *[]string) {
	s := New(store)
	s.now = func() time.Time { return now }
	var fired []string
	for _, id := range []string{"radarr_quick_sync", "tautulli_sync"} {
		id := id
		s.Register(id, func() error {
			fired = append(fired, id)
			return nil
		})
	}
	return s, &fired
}

func TestTickFiresMatchingEntry(t *testing.T) {
	store := &fakeStore{entries: []*models.ScheduleEntry{{
		ID: 1, Name: "nightly", Time: "03:30", Days: []int{0},
		Tasks: []string{"radarr_quick_sync", "tautulli_sync"}, Enabled: true,
	}}}
	s, fired := newTestScheduler(store, monday)
	s.tick()
	assert.Equal(t, []string{"radarr_quick_sync", "tautulli_sync"}, *fired)
	assert.Equal(t, []int64{1}, store.stamped)
}

func TestTickSkipsWrongWeekday(t *testing.T) {
	store := &fakeStore{entries: []*models.ScheduleEntry{{
		ID: 1, Time: "03:30", Days: []int{1}, // Tuesday
		Tasks: []string{"radarr_quick_sync"}, Enabled: true,
	}}}
	s, fired := newTestScheduler(store, monday)
	s.tick()
	assert.Empty(t, *fired)
	assert.Empty(t, store.stamped)
}

func TestTickEmptyDaysMeansEveryDay(t *testing.T) {
	store := &fakeStore{entries: []*models.ScheduleEntry{{
		ID: 1, Time: "03:30", Tasks: []string{"radarr_quick_sync"}, Enabled: true,
	}}}
	s, fired := newTestScheduler(store, monday)
	s.tick()
	assert.Equal(t, []string{"radarr_quick_sync"}, *fired)
}

func TestTickDedupesWithinAMinute(t *testing.T) {
	store := &fakeStore{entries: []*models.ScheduleEntry{{
		ID: 1, Time: "03:30", Tasks: []string{"radarr_quick_sync"}, Enabled: true,
	}}}
	s, fired := newTestScheduler(store, monday)
	s.tick()
	s.tick()
	assert.Len(t, *fired, 1)

	s.now = func() time.Time { return monday.Add(24 * time.Hour) }
	s.tick()
	assert.Len(t, *fired, 2)
}

func TestTickUnknownTaskSkipped(t *testing.T) {
	store := &fakeStore{entries: []*models.ScheduleEntry{{
		ID: 1, Time: "03:30", Tasks: []string{"no_such_task", "radarr_quick_sync"}, Enabled: true,
	}}}
	s, fired := newTestScheduler(store, monday)
	s.tick()
	assert.Equal(t, []string{"radarr_quick_sync"}, *fired)
	assert.Equal(t, []int64{1}, store.stamped, "entry still stamps despite unknown task")
}

func TestMatchesWeekdayMondayZero(t *testing.T) {
	assert.True(t, matchesWeekday([]int{0}, time.Monday))
	assert.True(t, matchesWeekday([]int{6}, time.Sunday))
	assert.False(t, matchesWeekday([]int{0}, time.Sunday))
}

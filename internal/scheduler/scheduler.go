// Package scheduler fires stored schedule entries. A cron wakeup runs once
// a minute and compares the wall clock against the enabled entries; the
// entries themselves live in the database so edits take effect on the next
// minute without a restart.
package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/curatarr/curatarr/internal/models"
)

// TaskFunc enqueues one named background task.
type TaskFunc func() error

// ScheduleStore is the slice of the schedule repository the ticker needs.
type ScheduleStore interface {
	ListEnabledAt(hhmm string) ([]*models.ScheduleEntry, error)
	StampLastRun(id int64, at time.Time) error
}

// Scheduler dispatches schedule entries to registered task actions.
type Scheduler struct {
	store   ScheduleStore
	actions map[string]TaskFunc
	cron    *cron.Cron
	now     func() time.Time
}

func New(store ScheduleStore) *Scheduler {
	return &Scheduler{
		store:   store,
		actions: make(map[string]TaskFunc),
		cron:    cron.New(),
		now:     time.Now,
	}
}

// Register binds a task identifier to its enqueue action.
func (s *Scheduler) Register(taskID string, fn TaskFunc) {
	s.actions[taskID] = fn
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("* * * * *", s.tick); err != nil {
		return err
	}
	s.cron.Start()
	log.Println("Scheduler: minute ticker started")
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler: stopped")
}

// tick fires every entry whose time and weekday match the current minute.
// An entry that already ran inside the last minute is skipped, so a tick
// that lands twice in one minute cannot double-fire it.
func (s *Scheduler) tick() {
	now := s.now()
	entries, err := s.store.ListEnabledAt(now.Format("15:04"))
	if err != nil {
		log.Printf("Scheduler: list entries: %v", err)
		return
	}
	for _, entry := range entries {
		if !matchesWeekday(entry.Days, now.Weekday()) {
			continue
		}
		if entry.LastRun != nil && now.Sub(*entry.LastRun) < time.Minute {
			continue
		}
		s.fire(entry, now)
	}
}

func (s *Scheduler) fire(entry *models.ScheduleEntry, now time.Time) {
	log.Printf("Scheduler: firing %q (%d tasks)", entry.Name, len(entry.Tasks))
	for _, taskID := range entry.Tasks {
		fn, ok := s.actions[taskID]
		if !ok {
			log.Printf("Scheduler: entry %q names unknown task %q, skipping", entry.Name, taskID)
			continue
		}
		if err := fn(); err != nil {
			log.Printf("Scheduler: task %q from %q: %v", taskID, entry.Name, err)
		}
	}
	if err := s.store.StampLastRun(entry.ID, now); err != nil {
		log.Printf("Scheduler: stamp last run for %q: %v", entry.Name, err)
	}
}

// matchesWeekday checks the entry's day list, which counts 0=Monday.
// An empty list means every day.
func matchesWeekday(days []int, wd time.Weekday) bool {
	if len(days) == 0 {
		return true
	}
	day := (int(wd) + 6) % 7
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

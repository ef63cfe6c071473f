package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/curatarr/curatarr/internal/models"
)

type ScheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, name, time, days, tasks, enabled, last_run`

func scanScheduleEntry(row interface {
	Scan(dest ...interface{}) error
}) (*models.ScheduleEntry, error) {
	entry := &models.ScheduleEntry{}
	var days, tasks string
	err := row.Scan(&entry.ID, &entry.Name, &entry.Time, &days, &tasks, &entry.Enabled, &entry.LastRun)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(days), &entry.Days); err != nil {
		return nil, fmt.Errorf("decode schedule days: %w", err)
	}
	if err := json.Unmarshal([]byte(tasks), &entry.Tasks); err != nil {
		return nil, fmt.Errorf("decode schedule tasks: %w", err)
	}
	return entry, nil
}

func (r *ScheduleRepository) List() ([]*models.ScheduleEntry, error) {
	rows, err := r.db.Query(`SELECT ` + scheduleColumns + ` FROM schedule_entries ORDER BY time, id`)
	if err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}
	defer rows.Close()
	return collectScheduleEntries(rows)
}

// ListEnabledAt returns enabled entries whose time matches the given "HH:MM".
func (r *ScheduleRepository) ListEnabledAt(hhmm string) ([]*models.ScheduleEntry, error) {
	rows, err := r.db.Query(`SELECT `+scheduleColumns+` FROM schedule_entries WHERE enabled AND time = $1`, hhmm)
	if err != nil {
		return nil, fmt.Errorf("list schedule entries at %s: %w", hhmm, err)
	}
	defer rows.Close()
	return collectScheduleEntries(rows)
}

func (r *ScheduleRepository) Save(entry *models.ScheduleEntry) error {
	days, err := json.Marshal(entry.Days)
	if err != nil {
		return fmt.Errorf("encode schedule days: %w", err)
	}
	tasks, err := json.Marshal(entry.Tasks)
	if err != nil {
		return fmt.Errorf("encode schedule tasks: %w", err)
	}
	if entry.ID == 0 {
		err = r.db.QueryRow(`
			INSERT INTO schedule_entries (name, time, days, tasks, enabled)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			entry.Name, entry.Time, string(days), string(tasks), entry.Enabled,
		).Scan(&entry.ID)
	} else {
		_, err = r.db.Exec(`
			UPDATE schedule_entries SET name = $1, time = $2, days = $3, tasks = $4, enabled = $5
			WHERE id = $6`,
			entry.Name, entry.Time, string(days), string(tasks), entry.Enabled, entry.ID)
	}
	if err != nil {
		return fmt.Errorf("save schedule entry: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) StampLastRun(id int64, at time.Time) error {
	if _, err := r.db.Exec(`UPDATE schedule_entries SET last_run = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("stamp schedule last run: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) Delete(id int64) error {
	if _, err := r.db.Exec(`DELETE FROM schedule_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule entry: %w", err)
	}
	return nil
}

func collectScheduleEntries(rows *sql.Rows) ([]*models.ScheduleEntry, error) {
	var entries []*models.ScheduleEntry
	for rows.Next() {
		entry, err := scanScheduleEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/curatarr/curatarr/internal/models"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// UpsertEvent stores one playback record keyed by the remote row id, so a
// re-sync over an overlapping window never duplicates events.
func (r *HistoryRepository) UpsertEvent(event *models.WatchEvent) error {
	query := `
		INSERT INTO watch_events (row_id, title, "user", watched_at, state, duration_mins)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (row_id) DO UPDATE SET
			title = EXCLUDED.title,
			"user" = EXCLUDED."user",
			watched_at = EXCLUDED.watched_at,
			state = EXCLUDED.state,
			duration_mins = EXCLUDED.duration_mins
		RETURNING id`
	err := r.db.QueryRow(query,
		event.RowID, event.Title, event.User, event.WatchedAt, event.State, event.DurationMins,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("upsert watch event: %w", err)
	}
	return nil
}

// ListRecent returns the newest playback records, most recent first.
func (r *HistoryRepository) ListRecent(limit int) ([]*models.WatchEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, row_id, title, "user", watched_at, state, duration_mins
		FROM watch_events ORDER BY watched_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list watch events: %w", err)
	}
	defer rows.Close()
	var events []*models.WatchEvent
	for rows.Next() {
		event := &models.WatchEvent{}
		err := rows.Scan(&event.ID, &event.RowID, &event.Title, &event.User,
			&event.WatchedAt, &event.State, &event.DurationMins)
		if err != nil {
			return nil, fmt.Errorf("scan watch event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// LatestEventTime is the high-water mark of the mirrored history, nil
// when no events have been synced yet.
func (r *HistoryRepository) LatestEventTime() (*time.Time, error) {
	var latest sql.NullTime
	err := r.db.QueryRow(`SELECT MAX(watched_at) FROM watch_events`).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("latest watch event: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

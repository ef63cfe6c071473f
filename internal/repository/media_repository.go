package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/curatarr/curatarr/internal/models"
)

type MediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// mediaColumns is the standard SELECT list for media_items
const mediaColumns = `id, kind, remote_id, tmdb_id, tvdb_id, title, year, size_gb,
	overview, cast_list, labels, score, ai_score,
	marked_for_deletion_at, delete_at, local_poster_path`

func scanMediaItem(row interface {
	Scan(dest ...interface{}) error
}) (*models.MediaItem, error) {
	item := &models.MediaItem{}
	err := row.Scan(
		&item.ID, &item.Kind, &item.RemoteID, &item.TMDBID, &item.TVDBID,
		&item.Title, &item.Year, &item.SizeGB,
		&item.Overview, &item.CastList, &item.Labels, &item.Score, &item.AIScore,
		&item.MarkedForDeletionAt, &item.DeleteAt, &item.LocalPosterPath,
	)
	return item, err
}

func (r *MediaRepository) GetByID(id int64) (*models.MediaItem, error) {
	row := r.db.QueryRow(`SELECT `+mediaColumns+` FROM media_items WHERE id = $1`, id)
	item, err := scanMediaItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media item: %w", err)
	}
	return item, nil
}

func (r *MediaRepository) GetByRemoteID(kind models.MediaKind, remoteID int64) (*models.MediaItem, error) {
	row := r.db.QueryRow(`SELECT `+mediaColumns+` FROM media_items WHERE kind = $1 AND remote_id = $2`, kind, remoteID)
	item, err := scanMediaItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media item by remote id: %w", err)
	}
	return item, nil
}

// Save upserts on (kind, remote_id) and fills in the generated ID.
func (r *MediaRepository) Save(item *models.MediaItem) error {
	query := `
		INSERT INTO media_items (
			kind, remote_id, tmdb_id, tvdb_id, title, year, size_gb,
			overview, cast_list, labels, score, ai_score,
			marked_for_deletion_at, delete_at, local_poster_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (kind, remote_id) DO UPDATE SET
			tmdb_id = EXCLUDED.tmdb_id,
			tvdb_id = EXCLUDED.tvdb_id,
			title = EXCLUDED.title,
			year = EXCLUDED.year,
			size_gb = EXCLUDED.size_gb,
			overview = EXCLUDED.overview,
			cast_list = EXCLUDED.cast_list,
			labels = EXCLUDED.labels,
			score = EXCLUDED.score,
			ai_score = EXCLUDED.ai_score,
			marked_for_deletion_at = EXCLUDED.marked_for_deletion_at,
			delete_at = EXCLUDED.delete_at,
			local_poster_path = EXCLUDED.local_poster_path
		RETURNING id`

	err := r.db.QueryRow(query,
		item.Kind, item.RemoteID, item.TMDBID, item.TVDBID, item.Title, item.Year, item.SizeGB,
		item.Overview, item.CastList, item.Labels, item.Score, item.AIScore,
		item.MarkedForDeletionAt, item.DeleteAt, item.LocalPosterPath,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("save media item: %w", err)
	}
	return nil
}

func (r *MediaRepository) ListByIDs(ids []int64) ([]*models.MediaItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(`SELECT `+mediaColumns+` FROM media_items WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list media items by ids: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r *MediaRepository) ListByKind(kind models.MediaKind) ([]*models.MediaItem, error) {
	rows, err := r.db.Query(`SELECT `+mediaColumns+` FROM media_items WHERE kind = $1 ORDER BY title`, kind)
	if err != nil {
		return nil, fmt.Errorf("list media items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// SampleByScores returns up to limit random items of the kind whose score is
// in the given set. Used to pick exemplars for rule learning.
func (r *MediaRepository) SampleByScores(kind models.MediaKind, scores []models.Score, limit int) ([]*models.MediaItem, error) {
	vals := make([]string, len(scores))
	for i, s := range scores {
		vals[i] = string(s)
	}
	rows, err := r.db.Query(`
		SELECT `+mediaColumns+` FROM media_items
		WHERE kind = $1 AND score = ANY($2)
		ORDER BY RANDOM() LIMIT $3`, kind, pq.Array(vals), limit)
	if err != nil {
		return nil, fmt.Errorf("sample media items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ListScoringCandidates returns items eligible for AI scoring: anything not
// in a managed state. With resume set, items that already carry an AI score
// are skipped so an interrupted pass picks up where it left off.
func (r *MediaRepository) ListScoringCandidates(kind models.MediaKind, resume bool, limit int) ([]*models.MediaItem, error) {
	vals := make([]string, len(models.ManagedScores))
	for i, s := range models.ManagedScores {
		vals[i] = string(s)
	}
	query := `SELECT ` + mediaColumns + ` FROM media_items WHERE kind = $1 AND NOT (score = ANY($2))`
	if resume {
		query += ` AND ai_score IS NULL`
	}
	query += ` ORDER BY id`
	args := []interface{}{kind, pq.Array(vals)}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scoring candidates: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r *MediaRepository) SetAIScore(id int64, score int) error {
	if _, err := r.db.Exec(`UPDATE media_items SET ai_score = $1 WHERE id = $2`, score, id); err != nil {
		return fmt.Errorf("set ai score: %w", err)
	}
	return nil
}

func (r *MediaRepository) ClearAIScores(kind models.MediaKind) error {
	if _, err := r.db.Exec(`UPDATE media_items SET ai_score = NULL WHERE kind = $1`, kind); err != nil {
		return fmt.Errorf("clear ai scores: %w", err)
	}
	return nil
}

// ListDueForPurge returns Delete-scored items whose grace period has lapsed.
func (r *MediaRepository) ListDueForPurge(now time.Time) ([]*models.MediaItem, error) {
	rows, err := r.db.Query(`
		SELECT `+mediaColumns+` FROM media_items
		WHERE score = $1 AND delete_at IS NOT NULL AND delete_at <= $2
		ORDER BY delete_at`, models.ScoreDelete, now)
	if err != nil {
		return nil, fmt.Errorf("list items due for purge: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func (r *MediaRepository) Delete(id int64) error {
	if _, err := r.db.Exec(`DELETE FROM media_items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete media item: %w", err)
	}
	return nil
}

func collectItems(rows *sql.Rows) ([]*models.MediaItem, error) {
	var items []*models.MediaItem
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

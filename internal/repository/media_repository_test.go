package repository

import (
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatarr/curatarr/internal/models"
)

func mediaRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "kind", "remote_id", "tmdb_id", "tvdb_id", "title", "year", "size_gb",
		"overview", "cast_list", "labels", "score", "ai_score",
		"marked_for_deletion_at", "delete_at", "local_poster_path",
	})
}

func addMediaRow(rows *sqlmock.Rows, id int64, title string, score models.Score) *sqlmock.Rows {
	return rows.AddRow(id, "movie", id, nil, nil, title, 2020, 12.5,
		"", "", "", string(score), nil, nil, nil, "")
}

// A resumed scoring pass filters already-scored items in the query; a
// fresh pass re-includes them.
func TestListScoringCandidatesResumeFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewMediaRepository(db)

	mock.ExpectQuery(`NOT \(score = ANY\(\$2\)\) AND ai_score IS NULL ORDER BY id`).
		WillReturnRows(addMediaRow(mediaRows(), 1, "Heat", models.ScoreNotScored))
	items, err := repo.ListScoringCandidates(models.KindMovie, true, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	mock.ExpectQuery(`NOT \(score = ANY\(\$2\)\) ORDER BY id`).
		WillReturnRows(addMediaRow(addMediaRow(mediaRows(), 1, "Heat", models.ScoreNotScored), 2, "Ronin", models.ScoreNotScored))
	items, err = repo.ListScoringCandidates(models.KindMovie, false, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListScoringCandidatesLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewMediaRepository(db)

	mock.ExpectQuery(`ORDER BY id LIMIT \$3`).
		WithArgs(string(models.KindMovie), sqlmock.AnyArg(), 25).
		WillReturnRows(mediaRows())
	_, err = repo.ListScoringCandidates(models.KindMovie, true, 25)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// An item whose grace period ends exactly now is already due.
func TestListDueForPurgeBoundaryInclusive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewMediaRepository(db)

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`delete_at IS NOT NULL AND delete_at <= \$2`).
		WithArgs(string(models.ScoreDelete), now).
		WillReturnRows(addMediaRow(mediaRows(), 7, "Waterworld", models.ScoreDelete))

	items, err := repo.ListDueForPurge(now)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ScoreDelete, items[0].Score)

	assert.NoError(t, mock.ExpectationsWereMet())
}

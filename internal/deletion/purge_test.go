package deletion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatarr/curatarr/internal/models"
)

type fakeDeleter struct {
	deleted []int64
	failIDs map[int64]bool
}

func (f *fakeDeleter) DeleteItem(ctx context.Context, kind models.MediaKind, remoteID int64) error {
	if f.failIDs[remoteID] {
		return errors.New("service unavailable")
	}
	f.deleted = append(f.deleted, remoteID)
	return nil
}

type fakePurgeStore struct {
	due     []*models.MediaItem
	removed []int64
}

func (f *fakePurgeStore) ListDueForPurge(now time.Time) ([]*models.MediaItem, error) {
	return f.due, nil
}

func (f *fakePurgeStore) Delete(id int64) error {
	f.removed = append(f.removed, id)
	return nil
}

func dueItem(id, remoteID int64, kind models.MediaKind) *models.MediaItem {
	past := time.Now().Add(-time.Hour)
	return &models.MediaItem{
		ID: id, RemoteID: remoteID, Kind: kind, Title: "item",
		Score: models.ScoreDelete, DeleteAt: &past,
	}
}

func TestRunPurgesBothKinds(t *testing.T) {
	movies := &fakeDeleter{}
	shows := &fakeDeleter{}
	store := &fakePurgeStore{due: []*models.MediaItem{
		dueItem(1, 11, models.KindMovie),
		dueItem(2, 22, models.KindShow),
	}}
	p := &Purger{
		Clients: map[models.MediaKind]RemoteDeleter{models.KindMovie: movies, models.KindShow: shows},
		Store:   store,
	}
	result, err := p.Run(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.MoviesPurged)
	assert.Equal(t, 1, result.ShowsPurged)
	assert.Equal(t, []int64{11}, movies.deleted)
	assert.Equal(t, []int64{22}, shows.deleted)
	assert.ElementsMatch(t, []int64{1, 2}, store.removed)
}

func TestRunRemoteFailureKeepsLocalRow(t *testing.T) {
	movies := &fakeDeleter{failIDs: map[int64]bool{11: true}}
	store := &fakePurgeStore{due: []*models.MediaItem{
		dueItem(1, 11, models.KindMovie),
		dueItem(2, 12, models.KindMovie),
	}}
	p := &Purger{
		Clients: map[models.MediaKind]RemoteDeleter{models.KindMovie: movies},
		Store:   store,
	}
	result, err := p.Run(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.MoviesPurged)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []int64{2}, store.removed, "failed item's local row survives for retry")
}

func TestRunMissingConnectionSkips(t *testing.T) {
	store := &fakePurgeStore{due: []*models.MediaItem{dueItem(1, 11, models.KindShow)}}
	p := &Purger{Clients: map[models.MediaKind]RemoteDeleter{}, Store: store}
	result, err := p.Run(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, store.removed)
}

package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatarr/curatarr/internal/arr"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/retention"
)

type fakeLibrary struct {
	items     []arr.Item
	tags      []arr.Tag
	nextTagID int
	edits     []bulkEdit
}

type bulkEdit struct {
	ids    []int64
	tagIDs []int
	apply  string
}

func (f *fakeLibrary) ListItems(ctx context.Context, kind models.MediaKind) ([]arr.Item, error) {
	return f.items, nil
}

func (f *fakeLibrary) ListTags(ctx context.Context) ([]arr.Tag, error) {
	return f.tags, nil
}

func (f *fakeLibrary) CreateTag(ctx context.Context, label string) (arr.Tag, error) {
	f.nextTagID++
	tag := arr.Tag{ID: f.nextTagID + 100, Label: label}
	f.tags = append(f.tags, tag)
	return tag, nil
}

func (f *fakeLibrary) BulkEditTags(ctx context.Context, kind models.MediaKind, ids []int64, tagIDs []int, apply string) error {
	f.edits = append(f.edits, bulkEdit{ids: ids, tagIDs: tagIDs, apply: apply})
	return nil
}

type fakeStore struct {
	items map[int64]*models.MediaItem
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[int64]*models.MediaItem)}
}

func (f *fakeStore) GetByRemoteID(kind models.MediaKind, remoteID int64) (*models.MediaItem, error) {
	if item, ok := f.items[remoteID]; ok {
		copy := *item
		return &copy, nil
	}
	return nil, nil
}

func (f *fakeStore) Save(item *models.MediaItem) error {
	copy := *item
	f.items[item.RemoteID] = &copy
	return nil
}

func TestRunBootstrapsFromRemoteLabels(t *testing.T) {
	lib := &fakeLibrary{
		items: []arr.Item{
			{ID: 1, Title: "Heat", Year: 1995, SizeOnDisk: 2 << 30, Tags: []int{7}},
			{ID: 2, Title: "Gigli", Year: 2003, Tags: []int{8}},
			{ID: 3, Title: "Untagged", Year: 2020},
		},
		tags: []arr.Tag{{ID: 7, Label: "ai-keep"}, {ID: 8, Label: "ai-delete"}},
	}
	store := newFakeStore()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	r := &Reconciler{
		Kind:   models.KindMovie,
		Client: lib,
		Store:  store,
		Now:    func() time.Time { return now },
	}
	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Added)
	assert.False(t, result.Stopped)

	assert.Equal(t, models.ScoreKeep, store.items[1].Score)
	assert.InDelta(t, 2.0, store.items[1].SizeGB, 0.001)

	gigli := store.items[2]
	assert.Equal(t, models.ScoreDelete, gigli.Score)
	require.NotNil(t, gigli.DeleteAt)
	assert.Equal(t, now.AddDate(0, 0, retention.DefaultGraceDays), *gigli.DeleteAt)

	assert.Equal(t, models.ScoreNotScored, store.items[3].Score)
	assert.Empty(t, lib.edits, "remote already matches, no edits expected")
}

func TestRunGroupsDeltasIntoBulkEdits(t *testing.T) {
	// Two items locally Keep but unlabeled remotely, one labeled delete by
	// mistake. The pass should need exactly one add call for the pair and
	// one add plus one remove for the mislabeled item.
	lib := &fakeLibrary{
		items: []arr.Item{
			{ID: 1, Title: "A"},
			{ID: 2, Title: "B"},
			{ID: 3, Title: "C", Tags: []int{8}},
		},
		tags: []arr.Tag{{ID: 7, Label: "ai-keep"}, {ID: 8, Label: "ai-delete"}},
	}
	store := newFakeStore()
	for id := int64(1); id <= 3; id++ {
		store.items[id] = &models.MediaItem{Kind: models.KindMovie, RemoteID: id, Score: models.ScoreKeep}
	}

	r := &Reconciler{Kind: models.KindMovie, Client: lib, Store: store}
	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.TagsPushed)

	require.Len(t, lib.edits, 3)
	var adds, removes int
	for _, e := range lib.edits {
		switch e.apply {
		case "add":
			adds++
			assert.Equal(t, []int{7}, e.tagIDs)
		case "remove":
			removes++
			assert.Equal(t, []int{8}, e.tagIDs)
			assert.Equal(t, []int64{3}, e.ids)
		}
	}
	assert.Equal(t, 2, adds)
	assert.Equal(t, 1, removes)
}

func TestRunCreatesMissingTags(t *testing.T) {
	lib := &fakeLibrary{items: []arr.Item{{ID: 1, Title: "A"}}}
	store := newFakeStore()
	store.items[1] = &models.MediaItem{Kind: models.KindMovie, RemoteID: 1, Score: models.ScoreSeasonal}

	r := &Reconciler{Kind: models.KindShow, Client: lib, Store: store}
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, lib.tags, 1)
	assert.Equal(t, "ai-rolling-keep", lib.tags[0].Label)
	require.Len(t, lib.edits, 1)
	assert.Equal(t, "add", lib.edits[0].apply)
}

func TestRunStopFlushesCollectedGroups(t *testing.T) {
	lib := &fakeLibrary{
		items: []arr.Item{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"}},
		tags:  []arr.Tag{{ID: 7, Label: "ai-keep"}},
	}
	store := newFakeStore()
	for id := int64(1); id <= 3; id++ {
		store.items[id] = &models.MediaItem{Kind: models.KindMovie, RemoteID: id, Score: models.ScoreKeep}
	}

	processed := 0
	r := &Reconciler{
		Kind:   models.KindMovie,
		Client: lib,
		Store:  store,
		ShouldStop: func() bool {
			return processed >= 2
		},
		Progress: func(done, total int) { processed = done },
	}
	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Stopped)
	assert.Equal(t, 2, result.TagsPushed, "the first two items' edits still go out")
	require.Len(t, lib.edits, 1)
	assert.Equal(t, []int64{1, 2}, lib.edits[0].ids)
}

func TestRunLeavesForeignTagsAlone(t *testing.T) {
	lib := &fakeLibrary{
		items: []arr.Item{{ID: 1, Title: "A", Tags: []int{9}}},
		tags:  []arr.Tag{{ID: 9, Label: "4k-remux"}},
	}
	store := newFakeStore()
	store.items[1] = &models.MediaItem{Kind: models.KindMovie, RemoteID: 1, Score: models.ScoreNotScored}

	r := &Reconciler{Kind: models.KindMovie, Client: lib, Store: store}
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lib.edits)
	assert.Equal(t, "4k-remux", store.items[1].Labels)
}

func TestPushLabelsFullCanonicalState(t *testing.T) {
	lib := &fakeLibrary{tags: []arr.Tag{{ID: 7, Label: "ai-keep"}, {ID: 8, Label: "ai-delete"}}}
	add, remove := retention.CanonicalLabels(models.ScoreKeep)
	err := PushLabels(context.Background(), lib, models.KindMovie, []int64{5}, add, remove)
	require.NoError(t, err)

	require.Len(t, lib.edits, 2)
	assert.Equal(t, "add", lib.edits[0].apply)
	assert.Equal(t, []int{7}, lib.edits[0].tagIDs)
	assert.Equal(t, "remove", lib.edits[1].apply)
	// Only ai-delete exists remotely among the absent set; missing tags are
	// never created just to remove them.
	assert.Equal(t, []int{8}, lib.edits[1].tagIDs)
}

package retention

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatarr/curatarr/internal/models"
)

func set(labels ...Label) map[Label]bool {
	m := make(map[Label]bool, len(labels))
	for _, l := range labels {
		m[l] = true
	}
	return m
}

func TestCanonicalLabels(t *testing.T) {
	cases := []struct {
		score   models.Score
		present []Label
	}{
		{models.ScoreKeep, []Label{LabelKeep}},
		{models.ScoreDelete, []Label{LabelDelete}},
		{models.ScoreSeasonal, []Label{LabelSeasonal}},
		{models.ScoreWatchedKeep, []Label{LabelWatchedKeep}},
		{models.ScoreNotScored, nil},
		{models.ScoreArchived, nil},
		{models.Score("85"), nil}, // legacy numeric score claims no labels
	}
	for _, tc := range cases {
		t.Run(string(tc.score), func(t *testing.T) {
			present, absent := CanonicalLabels(tc.score)
			assert.Equal(t, tc.present, present)
			assert.Len(t, absent, len(Managed)-len(tc.present))
			for _, p := range present {
				assert.NotContains(t, absent, p)
			}
		})
	}
}

func TestBootstrapOrder(t *testing.T) {
	assert.Equal(t, models.ScoreKeep, Bootstrap(set(LabelKeep, LabelDelete, LabelWatchedKeep)))
	assert.Equal(t, models.ScoreDelete, Bootstrap(set(LabelDelete, LabelSeasonal)))
	assert.Equal(t, models.ScoreSeasonal, Bootstrap(set(LabelSeasonal, LabelWatchedKeep)))
	assert.Equal(t, models.ScoreWatchedKeep, Bootstrap(set(LabelWatchedKeep)))
	assert.Equal(t, models.ScoreNotScored, Bootstrap(set()))
}

func TestNormalizeCaseInsensitive(t *testing.T) {
	l, ok := Normalize("AI-Keep")
	require.True(t, ok)
	assert.Equal(t, LabelKeep, l)

	_, ok = Normalize("favorite")
	assert.False(t, ok)
}

func TestDelta(t *testing.T) {
	t.Run("missing canonical label is added", func(t *testing.T) {
		add, remove := Delta(models.ScoreKeep, set(LabelDelete))
		assert.Equal(t, []Label{LabelKeep}, add)
		assert.Equal(t, []Label{LabelDelete}, remove)
	})

	t.Run("matching remote state yields empty delta", func(t *testing.T) {
		add, remove := Delta(models.ScoreKeep, set(LabelKeep))
		assert.Empty(t, add)
		assert.Empty(t, remove)
	})

	t.Run("unmanaged labels are never removed", func(t *testing.T) {
		remote := LabelSet([]string{"4k", "kids", "ai-delete"})
		add, remove := Delta(models.ScoreNotScored, remote)
		assert.Empty(t, add)
		assert.Equal(t, []Label{LabelDelete}, remove)
	})
}

func TestTransitionDeleteStampsGrace(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := &models.MediaItem{Kind: models.KindMovie, Score: models.ScoreNotScored}

	add, remove := Transition(item, models.ScoreDelete, now, 30)

	assert.Equal(t, []Label{LabelDelete}, add)
	assert.ElementsMatch(t, []Label{LabelKeep, LabelSeasonal, LabelWatchedKeep}, remove)
	require.NotNil(t, item.MarkedForDeletionAt)
	require.NotNil(t, item.DeleteAt)
	assert.Equal(t, now, *item.MarkedForDeletionAt)
	assert.Equal(t, now.AddDate(0, 0, 30), *item.DeleteAt)
}

func TestTransitionOutOfDeleteClearsTimestamps(t *testing.T) {
	now := time.Now()
	item := &models.MediaItem{Kind: models.KindShow, Score: models.ScoreNotScored}
	Transition(item, models.ScoreDelete, now, 30)
	Transition(item, models.ScoreKeep, now, 30)

	assert.Nil(t, item.MarkedForDeletionAt)
	assert.Nil(t, item.DeleteAt)
}

// delete_at is non-null exactly when score is Delete, after any sequence
// of transitions.
func TestDeleteAtInvariant(t *testing.T) {
	now := time.Now()
	item := &models.MediaItem{Kind: models.KindShow, Score: models.ScoreNotScored}
	seq := []models.Score{
		models.ScoreDelete, models.ScoreSeasonal, models.ScoreDelete,
		models.ScoreWatchedKeep, models.ScoreKeep, models.ScoreDelete, models.ScoreNotScored,
	}
	for _, score := range seq {
		Transition(item, score, now, 14)
		if score == models.ScoreDelete {
			assert.NotNil(t, item.DeleteAt, "score=%s", score)
			assert.NotNil(t, item.MarkedForDeletionAt, "score=%s", score)
		} else {
			assert.Nil(t, item.DeleteAt, "score=%s", score)
			assert.Nil(t, item.MarkedForDeletionAt, "score=%s", score)
		}
	}
}

func TestEnsureLifecycleRepairsBootstrappedDelete(t *testing.T) {
	now := time.Now()
	item := &models.MediaItem{Score: models.ScoreDelete}
	EnsureLifecycle(item, now, 7)
	require.NotNil(t, item.DeleteAt)
	assert.Equal(t, now.AddDate(0, 0, 7), *item.DeleteAt)
}

func TestResetGrace(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	item := &models.MediaItem{Score: models.ScoreNotScored}
	Transition(item, models.ScoreDelete, start, 30)

	later := start.AddDate(0, 0, 20)
	require.True(t, ResetGrace(item, later, 30))
	assert.Equal(t, later, *item.MarkedForDeletionAt)
	assert.Equal(t, later.AddDate(0, 0, 30), *item.DeleteAt)

	kept := &models.MediaItem{Score: models.ScoreKeep}
	assert.False(t, ResetGrace(kept, later, 30))
	assert.Nil(t, kept.DeleteAt)
}

func TestGraceDefaultsWhenUnset(t *testing.T) {
	now := time.Now()
	item := &models.MediaItem{Score: models.ScoreNotScored}
	Transition(item, models.ScoreDelete, now, 0)
	assert.Equal(t, now.AddDate(0, 0, DefaultGraceDays), *item.DeleteAt)
}

func TestSplitJoinLabels(t *testing.T) {
	assert.Equal(t, []string{"ai-keep", "4k"}, SplitLabels("ai-keep,4k"))
	assert.Nil(t, SplitLabels(""))
	assert.Equal(t, []string{"a"}, SplitLabels("a,, "))
	assert.Equal(t, "a,b", JoinLabels([]string{"a", "b"}))
}

// Package retention holds the per-item score state machine: the canonical
// mapping between scores and remote labels, the label delta computation,
// and the grace-period timestamp arithmetic. It performs no I/O.
package retention

import (
	"sort"
	"strings"
	"time"

	"github.com/curatarr/curatarr/internal/models"
)

// Label is one of the four managed remote labels. Values are the exact
// lowercase tag names used on the remote services; comparisons against
// remote data always go through Normalize so casing drift on the remote
// side cannot split the set.
type Label string

const (
	LabelKeep        Label = "ai-keep"
	LabelDelete      Label = "ai-delete"
	LabelSeasonal    Label = "ai-rolling-keep"
	LabelWatchedKeep Label = "ai-tautulli-keep"
)

// Managed lists the closed label vocabulary in bootstrap precedence order.
var Managed = []Label{LabelKeep, LabelDelete, LabelSeasonal, LabelWatchedKeep}

// DefaultGraceDays applies when a service connection has no grace setting.
const DefaultGraceDays = 30

// scoreLabel maps each decided score to the single label that must be
// present. NotScored has no entry: all four labels must be absent.
var scoreLabel = map[models.Score]Label{
	models.ScoreKeep:        LabelKeep,
	models.ScoreDelete:      LabelDelete,
	models.ScoreSeasonal:    LabelSeasonal,
	models.ScoreWatchedKeep: LabelWatchedKeep,
}

// CanonicalLabels returns the managed labels that must be present and
// absent on the remote side for the given score. Scores outside the
// managed set (legacy values, Archived) behave like NotScored: the system
// claims no labels for them.
func CanonicalLabels(score models.Score) (present, absent []Label) {
	want, ok := scoreLabel[score]
	for _, l := range Managed {
		if ok && l == want {
			present = append(present, l)
		} else {
			absent = append(absent, l)
		}
	}
	return present, absent
}

// Normalize folds a raw remote label into the managed vocabulary,
// returning false for labels the system does not own.
func Normalize(raw string) (Label, bool) {
	l := Label(strings.ToLower(strings.TrimSpace(raw)))
	for _, m := range Managed {
		if l == m {
			return m, true
		}
	}
	return "", false
}

// LabelSet builds the managed subset of a raw remote label list.
func LabelSet(raw []string) map[Label]bool {
	set := make(map[Label]bool, len(raw))
	for _, r := range raw {
		if l, ok := Normalize(r); ok {
			set[l] = true
		}
	}
	return set
}

// Bootstrap derives an initial score for a freshly discovered item from
// the labels already present remotely. First match wins in Managed order;
// an unlabeled item starts NotScored.
func Bootstrap(remote map[Label]bool) models.Score {
	for _, l := range Managed {
		if !remote[l] {
			continue
		}
		switch l {
		case LabelKeep:
			return models.ScoreKeep
		case LabelDelete:
			return models.ScoreDelete
		case LabelSeasonal:
			return models.ScoreSeasonal
		case LabelWatchedKeep:
			return models.ScoreWatchedKeep
		}
	}
	return models.ScoreNotScored
}

// Delta computes the managed-label edits needed to make the remote state
// match the score: labels to add are canonical-present but remotely
// missing, labels to remove are canonical-absent but remotely set. Labels
// outside the managed vocabulary are never touched. Both slices come back
// sorted so equal deltas compare equal.
func Delta(score models.Score, remote map[Label]bool) (add, remove []Label) {
	present, absent := CanonicalLabels(score)
	for _, l := range present {
		if !remote[l] {
			add = append(add, l)
		}
	}
	for _, l := range absent {
		if remote[l] {
			remove = append(remove, l)
		}
	}
	sortLabels(add)
	sortLabels(remove)
	return add, remove
}

func sortLabels(ls []Label) {
	sort.Slice(ls, func(i, j int) bool { return ls[i] < ls[j] })
}

// Transition moves an item to a new score and keeps the deletion
// timestamps consistent: entering Delete stamps marked_for_deletion_at and
// delete_at = now + graceDays, leaving Delete clears both. It returns the
// full canonical (add, remove) sets for the new score; pushing them in
// full is idempotent on the remote side, so interactive actions do not
// need to trust the possibly stale local label cache.
func Transition(item *models.MediaItem, score models.Score, now time.Time, graceDays int) (add, remove []Label) {
	item.Score = score
	EnsureLifecycle(item, now, graceDays)
	return CanonicalLabels(score)
}

// EnsureLifecycle repairs the delete_at invariant for whatever score the
// item currently carries. Reconciliation calls this after every refresh so
// the invariant holds even for rows bootstrapped straight into Delete.
func EnsureLifecycle(item *models.MediaItem, now time.Time, graceDays int) {
	if item.Score == models.ScoreDelete {
		if item.DeleteAt == nil || item.MarkedForDeletionAt == nil {
			stampGrace(item, now, graceDays)
		}
		return
	}
	item.MarkedForDeletionAt = nil
	item.DeleteAt = nil
}

// ResetGrace restarts the countdown for an item already marked Delete.
// It reports whether the item was eligible.
func ResetGrace(item *models.MediaItem, now time.Time, graceDays int) bool {
	if item.Score != models.ScoreDelete {
		return false
	}
	stampGrace(item, now, graceDays)
	return true
}

func stampGrace(item *models.MediaItem, now time.Time, graceDays int) {
	if graceDays <= 0 {
		graceDays = DefaultGraceDays
	}
	marked := now
	due := now.AddDate(0, 0, graceDays)
	item.MarkedForDeletionAt = &marked
	item.DeleteAt = &due
}

// SplitLabels breaks the comma-joined cached label string back into parts.
func SplitLabels(cached string) []string {
	if cached == "" {
		return nil
	}
	parts := strings.Split(cached, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinLabels rebuilds the cached label string from remote tag names.
func JoinLabels(names []string) string {
	return strings.Join(names, ",")
}

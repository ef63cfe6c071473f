// Package sync mirrors a remote library into the local store and pushes
// label corrections back out through the bulk editor, grouped by delta so
// a full-library pass costs a handful of editor calls instead of one per
// item.
package sync

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/curatarr/curatarr/internal/arr"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/retention"
	"github.com/curatarr/curatarr/internal/tmdb"
)

// LibraryClient is the remote surface a sync pass needs.
type LibraryClient interface {
	ListItems(ctx context.Context, kind models.MediaKind) ([]arr.Item, error)
	ListTags(ctx context.Context) ([]arr.Tag, error)
	CreateTag(ctx context.Context, label string) (arr.Tag, error)
	BulkEditTags(ctx context.Context, kind models.MediaKind, ids []int64, tagIDs []int, apply string) error
}

// MediaStore is the slice of the media repository a sync pass needs.
type MediaStore interface {
	GetByRemoteID(kind models.MediaKind, remoteID int64) (*models.MediaItem, error)
	Save(item *models.MediaItem) error
}

// AssetFetcher resolves metadata-service extras for one item.
type AssetFetcher interface {
	Fetch(ctx context.Context, kind models.MediaKind, externalID int64) (*tmdb.Assets, error)
}

// Result summarizes one reconciliation pass.
type Result struct {
	Total      int  `json:"total"`
	Added      int  `json:"added"`
	Updated    int  `json:"updated"`
	TagsPushed int  `json:"tags_pushed"`
	Stopped    bool `json:"stopped"`
}

// Reconciler runs one sync pass for one kind. Assets may be nil when no
// metadata key is configured; Progress and ShouldStop may be nil.
type Reconciler struct {
	Kind       models.MediaKind
	Client     LibraryClient
	Store      MediaStore
	Assets     AssetFetcher
	GraceDays  int
	FullSync   bool
	Progress   func(done, total int)
	ShouldStop func() bool
	Now        func() time.Time
}

type deltaGroup struct {
	add    []retention.Label
	remove []retention.Label
	ids    []int64
}

// Run mirrors the remote library and flushes grouped label corrections.
// A stop request breaks the item loop early but still flushes the groups
// collected so far, so work already decided is not thrown away.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	items, err := r.Client.ListItems(ctx, r.Kind)
	if err != nil {
		return nil, fmt.Errorf("fetch %s library: %w", r.Kind, err)
	}
	tags, err := r.Client.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tag catalog: %w", err)
	}
	tagNames := make(map[int]string, len(tags))
	for _, t := range tags {
		tagNames[t.ID] = t.Label
	}

	result := &Result{Total: len(items)}
	groups := make(map[string]*deltaGroup)

	for i, remote := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.ShouldStop != nil && r.ShouldStop() {
			result.Stopped = true
			break
		}

		names := make([]string, 0, len(remote.Tags))
		for _, id := range remote.Tags {
			if name, ok := tagNames[id]; ok {
				names = append(names, name)
			}
		}
		remoteSet := retention.LabelSet(names)

		item, err := r.Store.GetByRemoteID(r.Kind, remote.ID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			item = &models.MediaItem{
				Kind:     r.Kind,
				RemoteID: remote.ID,
				Score:    retention.Bootstrap(remoteSet),
			}
			result.Added++
		} else {
			result.Updated++
		}

		item.Title = remote.Title
		item.Year = remote.Year
		item.SizeGB = remote.SizeGB()
		item.Overview = remote.Overview
		item.Labels = retention.JoinLabels(names)
		if remote.TMDBID != 0 {
			id := remote.TMDBID
			item.TMDBID = &id
		}
		if remote.TVDBID != 0 {
			id := remote.TVDBID
			item.TVDBID = &id
		}
		retention.EnsureLifecycle(item, now(), r.GraceDays)

		r.fetchAssets(ctx, item)

		if err := r.Store.Save(item); err != nil {
			return nil, err
		}

		if add, remove := retention.Delta(item.Score, remoteSet); len(add) > 0 || len(remove) > 0 {
			key := groupKey(add, remove)
			g, ok := groups[key]
			if !ok {
				g = &deltaGroup{add: add, remove: remove}
				groups[key] = g
			}
			g.ids = append(g.ids, remote.ID)
		}

		if r.Progress != nil {
			r.Progress(i+1, len(items))
		}
	}

	pushed, err := r.flush(ctx, groups, tags)
	result.TagsPushed = pushed
	if err != nil {
		return result, err
	}
	return result, nil
}

// fetchAssets fills overview, cast and poster from the metadata service.
// Failures are logged and skipped; mirror data never blocks on artwork.
func (r *Reconciler) fetchAssets(ctx context.Context, item *models.MediaItem) {
	if r.Assets == nil {
		return
	}
	if !r.FullSync && item.LocalPosterPath != "" && item.CastList != "" {
		return
	}
	externalID := int64(0)
	if r.Kind == models.KindShow {
		if item.TVDBID != nil {
			externalID = *item.TVDBID
		}
	} else if item.TMDBID != nil {
		externalID = *item.TMDBID
	}
	if externalID == 0 {
		return
	}
	assets, err := r.Assets.Fetch(ctx, r.Kind, externalID)
	if err != nil {
		log.Printf("Sync: metadata fetch failed for %s %q: %v", r.Kind, item.Title, err)
		return
	}
	if assets.Overview != "" {
		item.Overview = assets.Overview
	}
	if assets.Cast != "" {
		item.CastList = assets.Cast
	}
	if assets.PosterPath != "" {
		item.LocalPosterPath = assets.PosterPath
	}
	if assets.TMDBID != 0 && item.TMDBID == nil {
		id := assets.TMDBID
		item.TMDBID = &id
	}
}

// flush pushes each delta group as at most one bulk add plus one bulk
// remove, creating missing tags on the fly.
func (r *Reconciler) flush(ctx context.Context, groups map[string]*deltaGroup, tags []arr.Tag) (int, error) {
	if len(groups) == 0 {
		return 0, nil
	}

	tagIDs := make(map[retention.Label]int)
	for _, t := range tags {
		if l, ok := retention.Normalize(t.Label); ok {
			tagIDs[l] = t.ID
		}
	}
	resolve := func(labels []retention.Label) ([]int, error) {
		ids := make([]int, 0, len(labels))
		for _, l := range labels {
			id, ok := tagIDs[l]
			if !ok {
				created, err := r.Client.CreateTag(ctx, string(l))
				if err != nil {
					return nil, fmt.Errorf("create tag %s: %w", l, err)
				}
				id = created.ID
				tagIDs[l] = id
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pushed := 0
	for _, key := range keys {
		g := groups[key]
		if len(g.add) > 0 {
			ids, err := resolve(g.add)
			if err != nil {
				return pushed, err
			}
			if err := r.Client.BulkEditTags(ctx, r.Kind, g.ids, ids, "add"); err != nil {
				return pushed, err
			}
			pushed += len(g.ids)
		}
		if len(g.remove) > 0 {
			ids, err := resolve(g.remove)
			if err != nil {
				return pushed, err
			}
			if err := r.Client.BulkEditTags(ctx, r.Kind, g.ids, ids, "remove"); err != nil {
				return pushed, err
			}
			if len(g.add) == 0 {
				pushed += len(g.ids)
			}
		}
	}
	log.Printf("Sync: pushed label edits for %d %s items in %d groups", pushed, r.Kind, len(groups))
	return pushed, nil
}

func groupKey(add, remove []retention.Label) string {
	parts := make([]string, 0, len(add)+len(remove)+1)
	for _, l := range add {
		parts = append(parts, "+"+string(l))
	}
	parts = append(parts, "|")
	for _, l := range remove {
		parts = append(parts, "-"+string(l))
	}
	return strings.Join(parts, " ")
}

// PushLabels applies one item's full canonical label state remotely. Used
// by interactive score changes and watch-history rescues, where the remote
// per-item tag state is unknown; pushing the full sets is idempotent.
func PushLabels(ctx context.Context, client LibraryClient, kind models.MediaKind, ids []int64, add, remove []retention.Label) error {
	if len(ids) == 0 {
		return nil
	}
	tags, err := client.ListTags(ctx)
	if err != nil {
		return fmt.Errorf("fetch tag catalog: %w", err)
	}
	tagIDs := make(map[retention.Label]int)
	for _, t := range tags {
		if l, ok := retention.Normalize(t.Label); ok {
			tagIDs[l] = t.ID
		}
	}
	resolve := func(labels []retention.Label, create bool) ([]int, error) {
		ids := make([]int, 0, len(labels))
		for _, l := range labels {
			id, ok := tagIDs[l]
			if !ok {
				if !create {
					continue
				}
				created, err := client.CreateTag(ctx, string(l))
				if err != nil {
					return nil, fmt.Errorf("create tag %s: %w", l, err)
				}
				id = created.ID
				tagIDs[l] = id
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	if addIDs, err := resolve(add, true); err != nil {
		return err
	} else if len(addIDs) > 0 {
		if err := client.BulkEditTags(ctx, kind, ids, addIDs, "add"); err != nil {
			return err
		}
	}
	// Tags that do not exist remotely cannot be set on any item, so removal
	// never needs to create them.
	if removeIDs, err := resolve(remove, false); err != nil {
		return err
	} else if len(removeIDs) > 0 {
		if err := client.BulkEditTags(ctx, kind, ids, removeIDs, "remove"); err != nil {
			return err
		}
	}
	return nil
}

// Package deletion carries out the end of the retention lifecycle: removing
// items whose grace period has lapsed from the remote service and then from
// the local mirror.
package deletion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/curatarr/curatarr/internal/models"
)

// RemoteDeleter deletes one item and its files from a library manager.
type RemoteDeleter interface {
	DeleteItem(ctx context.Context, kind models.MediaKind, remoteID int64) error
}

// Store is the slice of the media repository a purge needs.
type Store interface {
	ListDueForPurge(now time.Time) ([]*models.MediaItem, error)
	Delete(id int64) error
}

// Result counts what one purge pass removed.
type Result struct {
	MoviesPurged int `json:"movies_purged"`
	ShowsPurged  int `json:"shows_purged"`
	Failed       int `json:"failed"`
}

// Purger deletes overdue items. Clients maps the media kind to the remote
// service for that kind; a kind with no client is skipped.
type Purger struct {
	Clients map[models.MediaKind]RemoteDeleter
	Store   Store
}

// Run removes every item whose delete_at has passed. The remote delete
// goes first and the local row falls only after it succeeds, so a failed
// remote call leaves the item to be retried on the next pass.
func (p *Purger) Run(ctx context.Context, now time.Time) (*Result, error) {
	due, err := p.Store.ListDueForPurge(now)
	if err != nil {
		return nil, fmt.Errorf("list overdue items: %w", err)
	}

	result := &Result{}
	for _, item := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		client, ok := p.Clients[item.Kind]
		if !ok {
			log.Printf("Purge: no %s connection, skipping %q", item.Kind, item.Title)
			result.Failed++
			continue
		}
		if err := client.DeleteItem(ctx, item.Kind, item.RemoteID); err != nil {
			log.Printf("Purge: remote delete failed for %s %q: %v", item.Kind, item.Title, err)
			result.Failed++
			continue
		}
		if err := p.Store.Delete(item.ID); err != nil {
			return result, fmt.Errorf("remove local row for %q: %w", item.Title, err)
		}
		log.Printf("Purge: deleted %s %q (%.1f GB)", item.Kind, item.Title, item.SizeGB)
		if item.Kind == models.KindShow {
			result.ShowsPurged++
		} else {
			result.MoviesPurged++
		}
	}
	return result, nil
}

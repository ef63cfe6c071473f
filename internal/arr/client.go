// Package arr talks to the two library managers (Radarr-style for movies,
// Sonarr-style for shows) over their /api/v3 surface: item lists, the tag
// catalog, bulk tag edits, and destructive deletes.
package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/retryhttp"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *retryhttp.Client
	limiter *rate.Limiter
}

func New(conn *models.ServiceConnection) *Client {
	return &Client{
		baseURL: strings.TrimRight(conn.URL, "/"),
		apiKey:  conn.APIKey,
		http:    retryhttp.New(60*time.Second, conn.Name),
		// The bulk editor and tag calls are cheap; pacing at 5 rps keeps a
		// full-library pass from tripping the service's limiter.
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

// SetVerbose enables outbound request logging on the underlying client.
func (c *Client) SetVerbose(v bool) { c.http.SetVerbose(v) }

// Item is the subset of the remote item payload the mirror consumes.
// Movies carry sizeOnDisk at the top level, series under statistics.
type Item struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Year       int    `json:"year"`
	Overview   string `json:"overview"`
	TMDBID     int64  `json:"tmdbId"`
	TVDBID     int64  `json:"tvdbId"`
	SizeOnDisk int64  `json:"sizeOnDisk"`
	Statistics *struct {
		SizeOnDisk int64 `json:"sizeOnDisk"`
	} `json:"statistics"`
	Tags []int `json:"tags"`
}

// SizeGB returns the on-disk size in gigabytes regardless of kind.
func (it Item) SizeGB() float64 {
	size := it.SizeOnDisk
	if it.Statistics != nil {
		size = it.Statistics.SizeOnDisk
	}
	return float64(size) / (1 << 30)
}

type Tag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

func (c *Client) ListItems(ctx context.Context, kind models.MediaKind) ([]Item, error) {
	var items []Item
	if err := c.get(ctx, "/api/v3/"+kind.ResourcePath(), nil, &items); err != nil {
		return nil, fmt.Errorf("list %ss: %w", kind, err)
	}
	return items, nil
}

func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := c.get(ctx, "/api/v3/tag", nil, &tags); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

func (c *Client) CreateTag(ctx context.Context, label string) (Tag, error) {
	var tag Tag
	if err := c.send(ctx, http.MethodPost, "/api/v3/tag", map[string]string{"label": label}, &tag); err != nil {
		return Tag{}, fmt.Errorf("create tag %q: %w", label, err)
	}
	return tag, nil
}

// BulkEditTags applies one add or remove of the given tag IDs to every
// item in ids through the editor endpoint. apply is "add" or "remove".
func (c *Client) BulkEditTags(ctx context.Context, kind models.MediaKind, ids []int64, tagIDs []int, apply string) error {
	payload := map[string]interface{}{
		kind.EditorIDKey(): ids,
		"tags":             tagIDs,
		"applyTags":        apply,
	}
	if err := c.send(ctx, http.MethodPut, "/api/v3/"+kind.ResourcePath()+"/editor", payload, nil); err != nil {
		return fmt.Errorf("bulk %s tags: %w", apply, err)
	}
	return nil
}

// DeleteItem removes the item and its files from the remote service. The
// exclusion-list flag is always false: a purged item may be re-added later.
func (c *Client) DeleteItem(ctx context.Context, kind models.MediaKind, remoteID int64) error {
	query := url.Values{}
	query.Set("deleteFiles", "true")
	query.Set(kind.ExclusionParam(), "false")
	path := fmt.Sprintf("/api/v3/%s/%d", kind.ResourcePath(), remoteID)

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, func() (*http.Request, error) {
		return c.newRequest(http.MethodDelete, path, query, nil)
	})
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, remoteID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("delete %s %d: unexpected status %d", kind, remoteID, resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, func() (*http.Request, error) {
		return c.newRequest(http.MethodGet, path, query, nil)
	})
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, func() (*http.Request, error) {
		return c.newRequest(method, path, nil, body)
	})
	if err != nil {
		return err
	}
	return decode(resp, out)
}

func (c *Client) newRequest(method, path string, query url.Values, body []byte) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func decode(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Package tmdb fetches descriptive assets (overview, cast, poster) from
// the metadata provider. Shows are cross-referenced from their TVDB id to
// the provider's own id before lookup.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/retryhttp"
)

const (
	apiBase   = "https://api.themoviedb.org/3"
	imageBase = "https://image.tmdb.org/t/p/w500"
	castLimit = 5
)

type Client struct {
	apiKey  string
	dataDir string
	http    *retryhttp.Client
}

func New(apiKey, dataDir string) *Client {
	return &Client{
		apiKey:  apiKey,
		dataDir: dataDir,
		http:    retryhttp.New(30*time.Second, "tmdb"),
	}
}

// Assets is the descriptive payload for one item.
type Assets struct {
	TMDBID     int64
	Overview   string
	Cast       string // top billed names, comma-joined
	PosterPath string // path relative to the data dir, empty if none
}

type details struct {
	ID         int64  `json:"id"`
	Overview   string `json:"overview"`
	PosterPath string `json:"poster_path"`
	Credits    struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
	} `json:"credits"`
}

type findResult struct {
	TVResults []struct {
		ID int64 `json:"id"`
	} `json:"tv_results"`
}

// Fetch resolves and downloads assets for one item. For movies externalID
// is the provider's own id; for shows it is the TVDB id, translated via
// the find endpoint first.
func (c *Client) Fetch(ctx context.Context, kind models.MediaKind, externalID int64) (*Assets, error) {
	mediaType := "movie"
	tmdbID := externalID
	if kind == models.KindShow {
		mediaType = "tv"
		var found findResult
		findURL := fmt.Sprintf("%s/find/%d?api_key=%s&external_source=tvdb_id", apiBase, externalID, c.apiKey)
		if err := c.getJSON(ctx, findURL, &found); err != nil {
			return nil, fmt.Errorf("find tmdb id for tvdb %d: %w", externalID, err)
		}
		if len(found.TVResults) == 0 {
			return nil, fmt.Errorf("no tmdb match for tvdb %d", externalID)
		}
		tmdbID = found.TVResults[0].ID
	}

	var d details
	detailURL := fmt.Sprintf("%s/%s/%d?api_key=%s&append_to_response=credits", apiBase, mediaType, tmdbID, c.apiKey)
	if err := c.getJSON(ctx, detailURL, &d); err != nil {
		return nil, fmt.Errorf("fetch %s %d: %w", mediaType, tmdbID, err)
	}

	names := make([]string, 0, castLimit)
	for i, member := range d.Credits.Cast {
		if i >= castLimit {
			break
		}
		names = append(names, member.Name)
	}

	assets := &Assets{
		TMDBID:   tmdbID,
		Overview: d.Overview,
		Cast:     strings.Join(names, ", "),
	}
	if d.PosterPath != "" {
		local, err := c.downloadPoster(ctx, mediaType, tmdbID, d.PosterPath)
		if err != nil {
			return nil, fmt.Errorf("download poster for %s %d: %w", mediaType, tmdbID, err)
		}
		assets.PosterPath = local
	}
	return assets, nil
}

func (c *Client) downloadPoster(ctx context.Context, mediaType string, tmdbID int64, posterPath string) (string, error) {
	resp, err := c.http.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, imageBase+posterPath, nil)
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	rel := filepath.Join("posters", fmt.Sprintf("%s_%d.jpg", mediaType, tmdbID))
	full := filepath.Join(c.dataDir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(full)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return rel, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	resp, err := c.http.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Package tautulli reads playback history from the watch-history service.
package tautulli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/retryhttp"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *retryhttp.Client
}

func New(conn *models.ServiceConnection) *Client {
	return &Client{
		baseURL: strings.TrimRight(conn.URL, "/"),
		apiKey:  conn.APIKey,
		http:    retryhttp.New(60*time.Second, conn.Name),
	}
}

func (c *Client) SetVerbose(v bool) { c.http.SetVerbose(v) }

// HistoryItem is one playback row. FullTitle is the display title used for
// exact-string rescue matching against local items.
type HistoryItem struct {
	ID              int64  `json:"id"`
	FullTitle       string `json:"full_title"`
	User            string `json:"user"`
	Date            int64  `json:"date"`
	State           string `json:"state"`
	DurationSeconds int    `json:"duration_in_seconds"`
}

type historyEnvelope struct {
	Response struct {
		Data struct {
			Data []HistoryItem `json:"data"`
		} `json:"data"`
	} `json:"response"`
}

// GetHistory fetches up to length playback rows newer than after.
func (c *Client) GetHistory(ctx context.Context, after time.Time, length int) ([]HistoryItem, error) {
	query := url.Values{}
	query.Set("cmd", "get_history")
	query.Set("apikey", c.apiKey)
	query.Set("length", strconv.Itoa(length))
	query.Set("after", after.Format("2006-01-02"))

	resp, err := c.http.Do(ctx, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, c.baseURL+"/api/v2?"+query.Encode(), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("get history: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var envelope historyEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return envelope.Response.Data.Data, nil
}

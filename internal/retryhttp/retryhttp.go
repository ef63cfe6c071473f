// Package retryhttp is the shared outbound HTTP layer: bounded automatic
// retry on transient status codes with exponential backoff, plus optional
// verbose request/response logging.
package retryhttp

import (
	"context"
	"log"
	"net/http"
	"time"
)

const (
	maxAttempts = 5
	baseBackoff = 300 * time.Millisecond
)

// retryable mirrors the status_forcelist the services are known to emit
// under transient load.
var retryable = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

type Client struct {
	http     *http.Client
	category string
	verbose  bool
}

func New(timeout time.Duration, category string) *Client {
	return &Client{
		http:     &http.Client{Timeout: timeout},
		category: category,
	}
}

// SetVerbose toggles outbound call logging.
func (c *Client) SetVerbose(v bool) { c.verbose = v }

// Do issues the request built by newReq, retrying transient failures with
// backoff base*2^attempt. The request is rebuilt per attempt so bodies are
// replayed fresh. The last response is returned as-is once attempts are
// exhausted; non-retryable statuses are returned immediately and it is the
// caller's job to turn them into errors.
func (c *Client) Do(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * (1 << uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		if c.verbose {
			log.Printf("HTTP [%s]: %s %s", c.category, req.Method, req.URL)
		}
		resp, err = c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Connection-level failure: retry like a transient status.
			if attempt < maxAttempts-1 {
				continue
			}
			return nil, err
		}
		if c.verbose {
			log.Printf("HTTP [%s]: %d %s", c.category, resp.StatusCode, req.URL)
		}

		if !retryable[resp.StatusCode] || attempt == maxAttempts-1 {
			return resp, nil
		}
		resp.Body.Close()
	}
	return resp, nil
}

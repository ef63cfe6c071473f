package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completionResponse(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]string{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		Provider:      "OpenAI",
		APIKey:        "test-key",
		LearningModel: "gpt-test",
		ScoringModel:  "gpt-test",
		BaseURL:       baseURL,
	})
	require.NoError(t, err)
	client.sleep = func(time.Duration) {}
	return client
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestScoreItemsParsesResponse(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionResponse("```json\n{\"101\": 85, \"102\": 12}\n```"))
	})
	client := newTestClient(t, srv.URL)

	scores, err := client.ScoreItems(context.Background(), []Candidate{
		{ID: 101, Title: "Heat"}, {ID: 102, Title: "Gigli"},
	}, "keep classics")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"101": 85, "102": 12}, scores)
}

func TestScoreItemsUnparseableYieldsEmptyMap(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionResponse("I cannot score these items."))
	})
	client := newTestClient(t, srv.URL)

	scores, err := client.ScoreItems(context.Background(), []Candidate{{ID: 1}}, "")
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestCompleteRetriesRateLimitThenSucceeds(t *testing.T) {
	calls := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 4 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error": {"message": "rate limit", "type": "requests"}}`)
			return
		}
		fmt.Fprint(w, completionResponse("rules text"))
	})
	client := newTestClient(t, srv.URL)

	out, err := client.GenerateRules(context.Background(), []Exemplar{{Title: "Heat"}}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "rules text", out)
	assert.Equal(t, 5, calls)
}

func TestCompleteRateLimitExhaustionIsTerminal(t *testing.T) {
	calls := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limit", "type": "requests"}}`)
	})
	client := newTestClient(t, srv.URL)

	_, err := client.GenerateRules(context.Background(), []Exemplar{{Title: "Heat"}}, nil, "")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 5, calls)
}

func TestCompleteNonRateLimitErrorFailsFast(t *testing.T) {
	calls := 0
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"message": "bad model", "type": "invalid_request_error"}}`)
	})
	client := newTestClient(t, srv.URL)

	_, err := client.GenerateRules(context.Background(), []Exemplar{{Title: "Heat"}}, nil, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, calls)
}

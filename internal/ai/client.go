// Package ai wraps the hosted language model used to learn retention
// rules and score library items against them.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	maxAttempts = 5
	baseBackoff = 2 * time.Second

	// geminiBaseURL is the OpenAI-compatible endpoint of the Gemini API,
	// letting one client type serve both configured providers.
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

var (
	// ErrNotConfigured means no provider API key has been saved yet.
	ErrNotConfigured = errors.New("AI not configured")

	// ErrRateLimited is the terminal error after exhausting rate-limit
	// retries. Jobs let it propagate as a failure rather than continuing
	// against a starved provider.
	ErrRateLimited = errors.New("AI provider rate limit exceeded")
)

// Config is loaded from the settings table.
type Config struct {
	Provider      string // "OpenAI" or "Gemini"
	APIKey        string
	LearningModel string
	ScoringModel  string
	BaseURL       string // overrides the provider endpoint, used in tests
}

type Client struct {
	api           openai.Client
	learningModel string
	scoringModel  string

	sleep func(time.Duration) // swapped in tests
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	// Retrying is handled here so 429 handling stays in one place.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	baseURL := cfg.BaseURL
	if baseURL == "" && strings.EqualFold(cfg.Provider, "gemini") {
		baseURL = geminiBaseURL
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{
		api:           openai.NewClient(opts...),
		learningModel: cfg.LearningModel,
		scoringModel:  cfg.ScoringModel,
		sleep:         time.Sleep,
	}, nil
}

// GenerateRules asks the learning model for rule proposals given exemplars
// of kept and deleted items plus the current rule corpus. The raw response
// text is returned; proposal parsing happens in the rules package.
func (c *Client) GenerateRules(ctx context.Context, kept, deleted []Exemplar, currentRules string) (string, error) {
	prompt, err := buildLearningPrompt(kept, deleted, currentRules)
	if err != nil {
		return "", err
	}
	return c.complete(ctx, c.learningModel, prompt)
}

// ScoreItems asks the scoring model for 0-100 scores for each candidate.
// Keys of the returned map are the remote-id strings from the prompt; a
// response that fails to parse yields an empty map, never an error.
func (c *Client) ScoreItems(ctx context.Context, items []Candidate, rules string) (map[string]int, error) {
	prompt, err := buildScoringPrompt(items, rules)
	if err != nil {
		return nil, err
	}
	raw, err := c.complete(ctx, c.scoringModel, prompt)
	if err != nil {
		return nil, err
	}
	scores, err := ParseScores(raw)
	if err != nil {
		log.Printf("AI: discarding unparseable score response: %v", err)
		return map[string]int{}, nil
	}
	return scores, nil
}

// complete issues one chat completion with bounded retry on rate-limit
// errors: backoff base*2^attempt, then terminal ErrRateLimited.
func (c *Client) complete(ctx context.Context, model, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * (1 << uint(attempt-1))
			log.Printf("AI: rate limited, retry %d/%d in %s", attempt, maxAttempts-1, backoff)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			default:
				c.sleep(backoff)
			}
		}

		completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: shared.ChatModel(model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
		})
		if err != nil {
			if isRateLimit(err) {
				lastErr = err
				continue
			}
			return "", fmt.Errorf("model call failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("model returned no choices")
		}
		return completion.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("%w: %v", ErrRateLimited, lastErr)
}

func isRateLimit(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return true
	}
	// Gemini reports quota exhaustion in the error text.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "resource_exhausted")
}

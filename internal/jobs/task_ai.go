package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/hibiken/asynq"

	"github.com/curatarr/curatarr/internal/ai"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/repository"
	"github.com/curatarr/curatarr/internal/rules"
)

// AIPayload drives the learning and scoring passes. Resume skips items
// already scored; Reset wipes prior scores first so the pass starts over.
type AIPayload struct {
	Kind   models.MediaKind `json:"kind"`
	Resume bool             `json:"resume"`
	Reset  bool             `json:"reset"`
}

// AIHandler runs the rule-learning and scoring passes against the model
// provider.
type AIHandler struct {
	media       *repository.MediaRepository
	connections *repository.ConnectionRepository
	settings    *repository.SettingsRepository
	meta        *MetaStore

	newClient func(cfg ai.Config) (*ai.Client, error)
}

func NewAIHandler(media *repository.MediaRepository, connections *repository.ConnectionRepository, settings *repository.SettingsRepository, meta *MetaStore) *AIHandler {
	return &AIHandler{
		media:       media,
		connections: connections,
		settings:    settings,
		meta:        meta,
		newClient:   ai.NewClient,
	}
}

func (h *AIHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p AIPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if p.Kind == "" {
		p.Kind = models.KindMovie
	}

	client, err := h.client()
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			return errorResult(t, "AI provider is not configured")
		}
		return err
	}
	conn, err := h.connections.GetByName(p.Kind.ConnectionName())
	if err != nil {
		return err
	}
	if conn == nil {
		return errorResult(t, p.Kind.ConnectionName()+" is not configured")
	}

	switch t.Type() {
	case TaskAILearn:
		return h.learn(ctx, t, client, conn, p.Kind)
	case TaskAIScore:
		return h.score(ctx, t, client, conn, p)
	}
	return fmt.Errorf("unexpected task type %s", t.Type())
}

func (h *AIHandler) client() (*ai.Client, error) {
	s := h.settings
	provider, err := s.Get(repository.SettingAIProvider)
	if err != nil {
		return nil, err
	}
	apiKey, err := s.Get(repository.SettingAIAPIKey)
	if err != nil {
		return nil, err
	}
	learning, err := s.Get(repository.SettingAILearningModel)
	if err != nil {
		return nil, err
	}
	scoring, err := s.Get(repository.SettingAIScoringModel)
	if err != nil {
		return nil, err
	}
	baseURL, err := s.Get(repository.SettingAIBaseURL)
	if err != nil {
		return nil, err
	}
	return h.newClient(ai.Config{
		Provider:      provider,
		APIKey:        apiKey,
		LearningModel: learning,
		ScoringModel:  scoring,
		BaseURL:       baseURL,
	})
}

// learn samples exemplars from the decided states, asks the model for rule
// refinements, and stores the parsed proposals for review. An earlier
// unreviewed document is replaced outright: proposals age badly once the
// rules they refer to have moved on.
func (h *AIHandler) learn(ctx context.Context, t *asynq.Task, client *ai.Client, conn *models.ServiceConnection, kind models.MediaKind) error {
	beginJob(ctx, h.meta)

	batchKey := repository.SettingBatchMoviesLearn
	if kind == models.KindShow {
		batchKey = repository.SettingBatchShowsLearn
	}
	batch, err := h.settings.GetInt(batchKey)
	if err != nil {
		return err
	}

	keptItems, err := h.media.SampleByScores(kind, []models.Score{models.ScoreKeep, models.ScoreWatchedKeep}, batch)
	if err != nil {
		return err
	}
	deletedItems, err := h.media.SampleByScores(kind, []models.Score{models.ScoreDelete}, batch)
	if err != nil {
		return err
	}
	if len(keptItems) == 0 && len(deletedItems) == 0 {
		return errorResult(t, "no scored items to learn from")
	}

	kept := exemplars(keptItems, "kept")
	deleted := exemplars(deletedItems, "deleted")

	log.Printf("Job: learning from %d kept and %d deleted %s items", len(kept), len(deleted), kind)
	raw, err := client.GenerateRules(ctx, kept, deleted, conn.AIRules)
	if err != nil {
		return fmt.Errorf("generate rules: %w", err)
	}

	doc := rules.FromModelOutput(raw)
	encoded, err := doc.Marshal()
	if err != nil {
		return err
	}
	if err := h.connections.SaveProposals(conn.Name, &encoded); err != nil {
		return err
	}

	writeResult(t, map[string]interface{}{
		"status":      "Completed",
		"refinements": len(doc.Refinements),
		"new_rules":   len(doc.NewRules),
	})
	return nil
}

func exemplars(items []*models.MediaItem, status string) []ai.Exemplar {
	out := make([]ai.Exemplar, len(items))
	for i, item := range items {
		out[i] = ai.Exemplar{
			Title:    item.Title,
			Year:     item.Year,
			Overview: item.Overview,
			Labels:   item.Labels,
			Status:   status,
		}
	}
	return out
}

// score walks the unscored candidates in batches and records the model's
// numeric score per item. A rate-limit error after the client's own
// retries fails the job; other batch failures are logged and skipped so
// one bad batch cannot sink an overnight pass.
func (h *AIHandler) score(ctx context.Context, t *asynq.Task, client *ai.Client, conn *models.ServiceConnection, p AIPayload) error {
	if conn.AIRules == "" {
		return errorResult(t, "no rules to score against, run Learn first")
	}
	jobID := beginJob(ctx, h.meta)

	if p.Reset {
		if err := h.media.ClearAIScores(p.Kind); err != nil {
			return err
		}
	}

	batchKey := repository.SettingBatchMoviesScore
	if p.Kind == models.KindShow {
		batchKey = repository.SettingBatchShowsScore
	}
	batch, err := h.settings.GetInt(batchKey)
	if err != nil {
		return err
	}
	if batch <= 0 {
		batch = 50
	}
	maxItems, err := h.settings.GetInt(repository.SettingMaxItemsLimit)
	if err != nil {
		return err
	}

	resume := p.Resume && !p.Reset
	candidates, err := h.media.ListScoringCandidates(p.Kind, resume, maxItems)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		writeResult(t, map[string]interface{}{"status": "Completed", "scored": 0, "total": 0})
		return nil
	}

	total := len(candidates)
	tracker := NewTracker(total, func(percent int, eta string) {
		h.meta.SetProgress(ctx, jobID, percent, eta)
	})

	processed := 0
	scored := 0
	stopped := false
	start := time.Now()
	for offset := 0; offset < total; offset += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if h.meta.StopRequested(ctx, jobID) {
			stopped = true
			break
		}
		end := offset + batch
		if end > total {
			end = total
		}
		chunk := candidates[offset:end]

		cands := make([]ai.Candidate, len(chunk))
		byID := make(map[string]*models.MediaItem, len(chunk))
		for i, item := range chunk {
			cands[i] = ai.Candidate{
				ID:       item.ID,
				Title:    item.Title,
				Year:     item.Year,
				Overview: item.Overview,
				Labels:   item.Labels,
			}
			byID[strconv.FormatInt(item.ID, 10)] = item
		}

		scores, err := client.ScoreItems(ctx, cands, conn.AIRules)
		if err != nil {
			if errors.Is(err, ai.ErrRateLimited) {
				return fmt.Errorf("scoring %s items: %w", p.Kind, err)
			}
			log.Printf("Job: scoring batch at offset %d failed, skipping: %v", offset, err)
		} else {
			for id, score := range scores {
				item, ok := byID[id]
				if !ok {
					continue
				}
				if err := h.media.SetAIScore(item.ID, score); err != nil {
					return err
				}
				scored++
			}
		}

		processed = end
		tracker.Tick(processed)
		log.Printf("Job: scored %d/%d %s items (elapsed %s)", processed, total, p.Kind, time.Since(start).Round(time.Second))
	}

	status := "Completed"
	if stopped {
		status = "Stopped"
	}
	writeResult(t, map[string]interface{}{
		"status":    status,
		"processed": processed,
		"scored":    scored,
		"total":     total,
	})
	return nil
}

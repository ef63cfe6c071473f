package jobs

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"

	"github.com/curatarr/curatarr/internal/models"
)

// A scoring pass without a rule corpus must finish immediately with an
// error payload instead of prompting the model with blank rules. The
// zero handler has no stores wired, so reaching past the guard panics.
func TestScoreRefusesWithoutRules(t *testing.T) {
	h := &AIHandler{}
	task := asynq.NewTask(TaskAIScore, nil)
	conn := &models.ServiceConnection{Name: "radarr"}

	err := h.score(context.Background(), task, nil, conn, AIPayload{Kind: models.KindMovie})

	assert.NoError(t, err)
}

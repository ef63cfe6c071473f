package httputil

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 409, "job_running", "another job is running")

	assert.Equal(t, 409, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"error","error":{"code":"job_running","message":"another job is running"}}`, rec.Body.String())
}

func TestReadJSONOptionalEmptyBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/sync/movies", nil)

	body := struct {
		FullSync bool `json:"full_sync"`
	}{}
	require.NoError(t, ReadJSONOptional(req, &body))
	assert.False(t, body.FullSync)

	req = httptest.NewRequest("POST", "/api/v1/sync/movies", strings.NewReader(`{"full_sync":true}`))
	require.NoError(t, ReadJSONOptional(req, &body))
	assert.True(t, body.FullSync)
}

func TestReadJSONRequiresBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/media/action/bulk", nil)

	var body map[string]interface{}
	assert.Error(t, ReadJSON(req, &body))
}

package arr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatarr/curatarr/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(&models.ServiceConnection{Name: "radarr", URL: srv.URL, APIKey: "secret"})
}

func TestListItemsSendsAPIKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "/api/v3/movie", r.URL.Path)
		fmt.Fprint(w, `[{"id": 5, "title": "Heat", "year": 1995, "sizeOnDisk": 1073741824, "tags": [1]}]`)
	})

	items, err := client.ListItems(context.Background(), models.KindMovie)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(5), items[0].ID)
	assert.InDelta(t, 1.0, items[0].SizeGB(), 0.001)
}

func TestListItemsSeriesPathAndNestedSize(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/series", r.URL.Path)
		fmt.Fprint(w, `[{"id": 9, "title": "Lost", "tvdbId": 73739, "statistics": {"sizeOnDisk": 2147483648}}]`)
	})

	items, err := client.ListItems(context.Background(), models.KindShow)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.InDelta(t, 2.0, items[0].SizeGB(), 0.001)
	assert.Equal(t, int64(73739), items[0].TVDBID)
}

func TestBulkEditTagsPayloadShape(t *testing.T) {
	var movieBody, seriesBody map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		switch r.URL.Path {
		case "/api/v3/movie/editor":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&movieBody))
		case "/api/v3/series/editor":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&seriesBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{}`)
	})

	err := client.BulkEditTags(context.Background(), models.KindMovie, []int64{1, 2}, []int{7}, "add")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.0, 2.0}, movieBody["movieIds"])
	assert.Equal(t, "add", movieBody["applyTags"])
	assert.Nil(t, movieBody["seriesIds"])

	err = client.BulkEditTags(context.Background(), models.KindShow, []int64{3}, []int{8}, "remove")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{3.0}, seriesBody["seriesIds"])
	assert.Equal(t, "remove", seriesBody["applyTags"])
}

func TestDeleteItemQueryFlags(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v3/movie/42", r.URL.Path)
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	})

	err := client.DeleteItem(context.Background(), models.KindMovie, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"true"}, gotQuery["deleteFiles"])
	assert.Equal(t, []string{"false"}, gotQuery["addImportListExclusion"])
}

func TestDeleteItemSeriesExclusionParam(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	})

	err := client.DeleteItem(context.Background(), models.KindShow, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"false"}, gotQuery["addExclusion"])
}

func TestRetryOnServerError(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[]`)
	})

	_, err := client.ListTags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCreateTag(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ai-keep", body["label"])
		fmt.Fprint(w, `{"id": 12, "label": "ai-keep"}`)
	})

	tag, err := client.CreateTag(context.Background(), "ai-keep")
	require.NoError(t, err)
	assert.Equal(t, 12, tag.ID)
}

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybook-sh/daybook/internal/engine"
	"github.com/daybook-sh/daybook/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.DB) {
	t.Helper()

	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	recommender := engine.NewRecommender(engine.NewRelevance(nil), db)
	return New(db, recommender, Options{Version: "test"}), db
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, true, body["db"])
}

func TestCreateEntry(t *testing.T) {
	s, db := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/entries", map[string]any{
		"content":    "planning session",
		"start_time": "2024-06-01T09:00:00Z",
		"tags":       []string{"work"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, 0.5, body["importance"])

	stored, err := db.GetEntry(id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "planning session", stored.Content)
}

func TestCreateEntryMissingContent(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/entries", map[string]any{"start_time": "2024-06-01T09:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEntryBadTimestamp(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/entries", map[string]any{
		"content":    "note",
		"start_time": "June 1st",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "RFC 3339")
}

func TestGetEntry(t *testing.T) {
	s, db := newTestServer(t)

	e := store.Entry{ID: "e1", Content: "standup notes", StartTime: time.Now()}
	require.NoError(t, db.InsertEntry(&e))

	rec := doJSON(t, s, "GET", "/api/entries/e1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "standup notes", decode(t, rec)["content"])

	// Retrieval is logged for behavioral scoring.
	counts, err := db.AccessCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts["e1"])
}

func TestGetEntryAccessLogBroken(t *testing.T) {
	s, db := newTestServer(t)

	e := store.Entry{ID: "e1", Content: "standup notes", StartTime: time.Now()}
	require.NoError(t, db.InsertEntry(&e))

	// A broken access log is logged, not surfaced: the read still succeeds.
	_, err := db.Exec("DROP TABLE access_log")
	require.NoError(t, err)

	rec := doJSON(t, s, "GET", "/api/entries/e1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetEntryNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/entries/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEntries(t *testing.T) {
	s, db := newTestServer(t)

	now := time.Now()
	require.NoError(t, db.InsertEntry(&store.Entry{Content: "one", StartTime: now}))
	require.NoError(t, db.InsertEntry(&store.Entry{Content: "two", StartTime: now.AddDate(0, 0, -1)}))

	rec := doJSON(t, s, "GET", "/api/entries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["count"])
}

func TestRelatedRequiresQuery(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/related", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRelated(t *testing.T) {
	s, db := newTestServer(t)

	now := time.Now()
	require.NoError(t, db.InsertEntry(&store.Entry{ID: "hit", Content: "sprint planning meeting", StartTime: now}))
	require.NoError(t, db.InsertEntry(&store.Entry{ID: "miss", Content: "grocery run", StartTime: now}))

	rec := doJSON(t, s, "GET", "/api/related?q=sprint+planning+meeting&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(1), body["count"])
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "hit", results[0].(map[string]any)["id"])
}

func TestRecommend(t *testing.T) {
	s, db := newTestServer(t)

	now := time.Now()
	require.NoError(t, db.InsertEntry(&store.Entry{ID: "a", Content: "budget review meeting", StartTime: now}))

	rec := doJSON(t, s, "POST", "/api/recommend", map[string]any{
		"query":       "budget review meeting",
		"max_results": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	top := results[0].(map[string]any)
	assert.Equal(t, "a", top["id"])
	assert.Greater(t, top["relevance_score"].(float64), 0.0)
}

func TestRecommendRequiresQuery(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/recommend", map[string]any{"max_results": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGraph(t *testing.T) {
	s, db := newTestServer(t)

	now := time.Now()
	require.NoError(t, db.InsertEntry(&store.Entry{ID: "a", Content: "identical note", StartTime: now}))
	require.NoError(t, db.InsertEntry(&store.Entry{ID: "b", Content: "identical note", StartTime: now}))

	rec := doJSON(t, s, "GET", "/api/graph?threshold=0.9", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(2), body["nodes"])
	graph := body["graph"].(map[string]any)
	assert.Len(t, graph["a"], 1)
}

func TestGraphBadThreshold(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/graph?threshold=high", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttention(t *testing.T) {
	s, db := newTestServer(t)

	now := time.Now()
	require.NoError(t, db.InsertEntry(&store.Entry{ID: "a", Content: "planning meeting", StartTime: now}))
	require.NoError(t, db.InsertEntry(&store.Entry{ID: "b", Content: "grocery run", StartTime: now.AddDate(0, 0, -10)}))

	rec := doJSON(t, s, "GET", "/api/attention?q=meeting&factor=0.5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(2), body["count"])

	weights := body["weights"].(map[string]any)
	var sum float64
	for _, v := range weights {
		sum += v.(float64)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestAttentionRequiresQuery(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/attention", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttentionBadFactor(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/attention?q=meeting&factor=2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsightsEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/insights", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no entries", decode(t, rec)["message"])
}

func TestWeights(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/weights", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 0.4, body["similarity"])

	rec = doJSON(t, s, "PUT", "/api/weights", map[string]float64{"similarity": 0.7, "recency": 0.1})
	require.Equal(t, http.StatusOK, rec.Code)

	body = decode(t, rec)
	var sum float64
	for _, k := range []string{"recency", "frequency", "similarity", "importance"} {
		sum += body[k].(float64)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestUpdateWeightsInvalidKey(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, "PUT", "/api/weights", map[string]float64{"vibes": 0.5})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "invalid weight key")
}

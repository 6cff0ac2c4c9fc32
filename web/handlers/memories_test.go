package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/memgraph/internal/engine"
	"github.com/scrypster/memgraph/internal/storage/sqlite"
	"github.com/scrypster/memgraph/internal/vector"
	"github.com/scrypster/memgraph/pkg/types"
)

// stubProvider answers every embedding request with a fixed vector.
type stubProvider struct{ fail bool }

func (p *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *stubProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if p.fail {
		return nil, assert.AnError
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (p *stubProvider) Dimension() int                        { return 3 }
func (p *stubProvider) Model() string                         { return "stub" }
func (p *stubProvider) HealthCheck(ctx context.Context) error { return nil }

// testAPI bundles the routed handler with its backing pieces.
type testAPI struct {
	mux      *http.ServeMux
	store    *sqlite.Store
	index    *vector.MemoryIndex
	provider *stubProvider
	engine   *engine.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	provider := &stubProvider{}
	index := vector.NewMemoryIndex()
	eng := engine.NewEngineWithConfig(store, provider, index, engine.Config{
		EmbedRetries:      1,
		EmbedRetryBackoff: time.Millisecond,
	})
	h := NewHandlers(store, eng)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/memories", h.CreateMemory)
	mux.HandleFunc("GET /api/memories", h.ListMemories)
	mux.HandleFunc("GET /api/memories/{id}", h.GetMemory)
	mux.HandleFunc("PATCH /api/memories/{id}", h.UpdateMemory)
	mux.HandleFunc("DELETE /api/memories/{id}", h.DeleteMemory)
	mux.HandleFunc("POST /api/memories/{id}/archive", h.ArchiveMemory)
	mux.HandleFunc("POST /api/memories/{id}/unarchive", h.UnarchiveMemory)
	mux.HandleFunc("POST /api/memories/{id}/concepts", h.AttachConcepts)
	mux.HandleFunc("GET /api/memories/{id}/concepts", h.ListConcepts)
	mux.HandleFunc("GET /api/concepts/distribution", h.ConceptDistribution)
	mux.HandleFunc("POST /api/relationships", h.CreateRelationship)
	mux.HandleFunc("DELETE /api/relationships/{id}", h.DeleteRelationship)
	mux.HandleFunc("GET /api/memories/{id}/relationships", h.ListRelationships)
	mux.HandleFunc("GET /api/search", h.Search)
	mux.HandleFunc("GET /api/memories/{id}/related", h.Related)
	mux.HandleFunc("POST /api/memories/merge", h.MergeMemories)
	mux.HandleFunc("GET /api/audits/{id}", h.GetMergeAudit)
	mux.HandleFunc("GET /api/memories/{id}/audits", h.ListMergeAudits)
	mux.HandleFunc("GET /api/stats", NewStatsHandler(h, nil).Stats)

	return &testAPI{mux: mux, store: store, index: index, provider: provider, engine: eng}
}

// do performs a JSON request against the routed handler.
func (api *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	return rec
}

// createMemory creates a memory over the API and returns it.
func (api *testAPI) createMemory(t *testing.T, content string) types.Memory {
	t.Helper()
	rec := api.do(t, http.MethodPost, "/api/memories", CreateMemoryRequest{Content: content})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateMemoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Memory
}

func TestCreateMemoryEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/memories", CreateMemoryRequest{
		Content:    "TLS certificates rotate every 90 days",
		Context:    map[string]string{"project": "infra"},
		Importance: 4,
		Concepts:   []ConceptRef{{Name: "tls", Type: "topic"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp CreateMemoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Memory.ID)
	assert.Equal(t, 4, resp.Memory.Importance)
	assert.Equal(t, types.StatusActive, resp.Memory.Status)
	assert.NotEmpty(t, resp.Memory.ContentHash)
	assert.Empty(t, resp.DuplicateOf)

	// Attached concept is listed.
	rec = api.do(t, http.MethodGet, "/api/memories/"+resp.Memory.ID+"/concepts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var concepts []types.Concept
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &concepts))
	require.Len(t, concepts, 1)
	assert.Equal(t, "tls", concepts[0].Name)
}

func TestCreateMemoryFlagsDuplicates(t *testing.T) {
	api := newTestAPI(t)

	first := api.createMemory(t, "the deploy runs at 3am UTC")

	rec := api.do(t, http.MethodPost, "/api/memories", CreateMemoryRequest{
		Content: "the  deploy runs at 3am   UTC", // same after normalization
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CreateMemoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{first.ID}, resp.DuplicateOf)
	// Creation is never blocked by duplication.
	assert.NotEqual(t, first.ID, resp.Memory.ID)
}

func TestCreateMemoryValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/memories", CreateMemoryRequest{Content: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/memories", CreateMemoryRequest{Content: "x", Importance: 11})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMemoryEndpoint(t *testing.T) {
	api := newTestAPI(t)
	mem := api.createMemory(t, "retrievable")

	rec := api.do(t, http.MethodGet, "/api/memories/"+mem.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/memories/mem:missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "Not Found", errResp.Code)
}

func TestListMemoriesEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.createMemory(t, "first")
	api.createMemory(t, "second")

	rec := api.do(t, http.MethodGet, "/api/memories?status=active&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListMemoriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Memories, 1)

	rec = api.do(t, http.MethodGet, "/api/memories?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateMemoryEndpoint(t *testing.T) {
	api := newTestAPI(t)
	mem := api.createMemory(t, "v1")

	content := "v2"
	importance := 5
	rec := api.do(t, http.MethodPatch, "/api/memories/"+mem.ID, UpdateMemoryRequest{
		Content:    &content,
		Importance: &importance,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated types.Memory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "v2", updated.Content)
	assert.Equal(t, 5, updated.Importance)
	assert.Equal(t, types.HashContent("v2"), updated.ContentHash)
}

func TestDeleteMemoryEndpoint(t *testing.T) {
	api := newTestAPI(t)
	mem := api.createMemory(t, "doomed")

	rec := api.do(t, http.MethodDelete, "/api/memories/"+mem.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/memories/"+mem.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArchiveRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	mem := api.createMemory(t, "seasonal note")

	rec := api.do(t, http.MethodPost, "/api/memories/"+mem.ID+"/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var archived types.Memory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &archived))
	assert.Equal(t, types.StatusArchived, archived.Status)

	rec = api.do(t, http.MethodPost, "/api/memories/"+mem.ID+"/unarchive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var restored types.Memory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &restored))
	assert.Equal(t, types.StatusActive, restored.Status)
}

func TestRelationshipEndpoints(t *testing.T) {
	api := newTestAPI(t)
	a := api.createMemory(t, "a")
	b := api.createMemory(t, "b")

	rec := api.do(t, http.MethodPost, "/api/relationships", CreateRelationshipRequest{
		SourceID: a.ID,
		TargetID: b.ID,
		Type:     types.RelBuildsUpon,
		Strength: 0.8,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var rel types.Relationship
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rel))
	assert.NotEmpty(t, rel.ID)

	rec = api.do(t, http.MethodGet, "/api/memories/"+a.ID+"/relationships", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rels []types.Relationship
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rels))
	assert.Len(t, rels, 1)

	// Out-of-range strength is a 400.
	rec = api.do(t, http.MethodPost, "/api/relationships", CreateRelationshipRequest{
		SourceID: a.ID, TargetID: b.ID, Type: types.RelRelatesTo, Strength: 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/relationships/"+rel.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.createMemory(t, "counted")

	rec := api.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.MemoriesByStatus["active"])
	assert.Equal(t, 0, stats.Relationships)
}

func TestConceptDistributionEndpoint(t *testing.T) {
	api := newTestAPI(t)
	mem := api.createMemory(t, "kubernetes upgrade notes")

	rec := api.do(t, http.MethodPost, "/api/memories/"+mem.ID+"/concepts", []ConceptRef{
		{Name: "kubernetes", Type: "topic"},
		{Name: "alice", Type: "person"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/concepts/distribution", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var distribution map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &distribution))
	assert.Equal(t, 1, distribution["topic"])
	assert.Equal(t, 1, distribution["person"])
}

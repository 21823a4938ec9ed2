package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Harshitk-cp/sovern/internal/domain"
	"github.com/Harshitk-cp/sovern/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBeliefRouter(t *testing.T) (*chi.Mux, *service.BeliefGraph) {
	t.Helper()
	g := service.NewBeliefGraph(zap.NewNop())
	g.SeedCoreBeliefs()
	h := NewBeliefHandler(g, service.DefaultDominanceCap)

	r := chi.NewRouter()
	r.Get("/beliefs", h.List)
	r.Post("/beliefs", h.Create)
	r.Get("/beliefs/coherence", h.Coherence)
	r.Get("/beliefs/health", h.Health)
	r.Get("/beliefs/export", h.Export)
	r.Post("/beliefs/import", h.Import)
	r.Get("/beliefs/{id}", h.GetByID)
	r.Put("/beliefs/{id}/weight", h.UpdateWeight)
	r.Post("/beliefs/{id}/{action}", h.Revise)
	r.Put("/beliefs/{id}/connections/{otherID}", h.Connect)
	r.Delete("/beliefs/{id}/connections/{otherID}", h.Disconnect)
	return r, g
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestBeliefHandler_Create(t *testing.T) {
	r, g := newBeliefRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/beliefs", map[string]any{
		"stance": "Small steps compound", "domain": "knowledge", "reasoning": "habits",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[domain.BeliefNode](t, rec)
	assert.Equal(t, 5, created.Weight)
	assert.False(t, created.IsCore)
	assert.Equal(t, 4, g.Len())

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing stance", map[string]any{"domain": "self"}},
		{"bad domain", map[string]any{"stance": "x", "domain": "finance"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/beliefs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/beliefs", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 4, g.Len())
}

func TestBeliefHandler_Create_ClampsWeight(t *testing.T) {
	r, _ := newBeliefRouter(t)

	tests := []struct {
		weight int
		want   int
	}{
		{15, 10},
		{-3, 1},
		{0, 1},
		{7, 7},
	}
	for _, tt := range tests {
		rec := doJSON(t, r, http.MethodPost, "/beliefs", map[string]any{
			"stance": "Clamped", "domain": "meta", "weight": tt.weight,
		})
		require.Equal(t, http.StatusCreated, rec.Code, "weight %d", tt.weight)
		assert.Equal(t, tt.want, decodeBody[domain.BeliefNode](t, rec).Weight, "weight %d", tt.weight)
	}
}

func TestBeliefHandler_List(t *testing.T) {
	r, g := newBeliefRouter(t)
	learned, err := g.Create("Honest feedback helps", domain.DomainRelational, "", 6, false)
	require.NoError(t, err)

	tests := []struct {
		query string
		want  int
	}{
		{"", 4},
		{"?kind=core", 3},
		{"?kind=learned", 1},
		{"?kind=stable&limit=2", 2},
		{"?domain=relational", 1},
		{"?stance=honest", 2},
		{"?kind=core&stance=honest", 1},
		{"?limit=1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodGet, "/beliefs"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			resp := decodeBody[beliefListResponse](t, rec)
			assert.Equal(t, tt.want, resp.Count)
			assert.Len(t, resp.Beliefs, tt.want)
		})
	}

	_, err = g.Weaken(learned.ID, "doubt")
	require.NoError(t, err)
	rec := doJSON(t, r, http.MethodGet, "/beliefs?kind=volatile&limit=1", nil)
	resp := decodeBody[beliefListResponse](t, rec)
	require.Len(t, resp.Beliefs, 1)
	assert.Equal(t, learned.ID, resp.Beliefs[0].ID)

	for _, bad := range []string{"?kind=forgotten", "?domain=finance", "?limit=-1", "?limit=ten"} {
		rec := doJSON(t, r, http.MethodGet, "/beliefs"+bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	rec = doJSON(t, r, http.MethodGet, "/beliefs?stance=nothing-like-this", nil)
	assert.JSONEq(t, `{"beliefs":[],"count":0}`, rec.Body.String())
}

func TestBeliefHandler_GetByID(t *testing.T) {
	r, g := newBeliefRouter(t)
	core := g.CoreBeliefs()[0]

	rec := doJSON(t, r, http.MethodGet, "/beliefs/"+core.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.Stance, decodeBody[domain.BeliefNode](t, rec).Stance)

	rec = doJSON(t, r, http.MethodGet, "/beliefs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/beliefs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBeliefHandler_UpdateWeight(t *testing.T) {
	r, g := newBeliefRouter(t)
	core := g.CoreBeliefs()[0]
	path := "/beliefs/" + core.ID.String() + "/weight"

	rec := doJSON(t, r, http.MethodPut, path, map[string]any{"weight": 15, "reason": "sure"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[domain.BeliefNode](t, rec)
	assert.Equal(t, 10, got.Weight)
	require.Len(t, got.RevisionHistory, 1)
	assert.Equal(t, domain.RevisionStrengthen, got.RevisionHistory[0].Kind)

	rec = doJSON(t, r, http.MethodPut, path, map[string]any{"reason": "no weight"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBeliefHandler_Revise(t *testing.T) {
	r, g := newBeliefRouter(t)
	learned, err := g.Create("Tabs over spaces", domain.DomainMeta, "", 5, false)
	require.NoError(t, err)
	base := "/beliefs/" + learned.ID.String() + "/"

	tests := []struct {
		action string
		want   int
	}{
		{"challenge", 3},
		{"strengthen", 4},
		{"weaken", 3},
		{"revise", 3},
	}
	for _, tt := range tests {
		rec := doJSON(t, r, http.MethodPost, base+tt.action, map[string]string{"reason": tt.action})
		require.Equal(t, http.StatusOK, rec.Code, tt.action)
		assert.Equal(t, tt.want, decodeBody[domain.BeliefNode](t, rec).Weight, tt.action)
	}

	// Reason is optional.
	req := httptest.NewRequest(http.MethodPost, base+"strengthen", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodPost, base+"forget", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/beliefs/"+uuid.NewString()+"/challenge", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	got, err := g.Get(learned.ID)
	require.NoError(t, err)
	assert.Len(t, got.RevisionHistory, 5)
}

func TestBeliefHandler_ConnectDisconnect(t *testing.T) {
	r, g := newBeliefRouter(t)
	core := g.CoreBeliefs()
	a, b := core[0].ID.String(), core[1].ID.String()

	rec := doJSON(t, r, http.MethodPut, "/beliefs/"+a+"/connections/"+b, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{core[1].ID}, decodeBody[domain.BeliefNode](t, rec).Connections)

	other, err := g.Get(core[1].ID)
	require.NoError(t, err)
	assert.True(t, other.IsConnectedTo(core[0].ID))

	rec = doJSON(t, r, http.MethodPut, "/beliefs/"+a+"/connections/"+a, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPut, "/beliefs/"+a+"/connections/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/beliefs/"+b+"/connections/"+a, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[domain.BeliefNode](t, rec).Connections)
}

func TestBeliefHandler_CoherenceAndHealth(t *testing.T) {
	r, g := newBeliefRouter(t)
	core := g.CoreBeliefs()[0]

	rec := doJSON(t, r, http.MethodGet, "/beliefs/coherence?id="+core.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[map[string]any](t, rec)
	assert.InDelta(t, 76.666, resp["network_coherence"], 0.01)
	assert.InDelta(t, 80.0, resp["node_coherence"], 1e-9)
	assert.EqualValues(t, 3, resp["belief_count"])

	rec = doJSON(t, r, http.MethodGet, "/beliefs/coherence?id="+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/beliefs/coherence?id=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/beliefs/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[domain.CoherenceReport](t, rec)
	assert.Equal(t, 3, report.BeliefCount)
	assert.Len(t, report.Nodes, 3)
	assert.Empty(t, report.Dominant)
}

func TestBeliefHandler_ExportImport(t *testing.T) {
	r, g := newBeliefRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/beliefs/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	exported := decodeBody[beliefExport](t, rec)
	require.Len(t, exported.Beliefs, 3)

	exported.Beliefs = exported.Beliefs[:2]
	rec = doJSON(t, r, http.MethodPost, "/beliefs/import", exported)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, g.Len())

	bad := beliefExport{Beliefs: []domain.BeliefRecord{{ID: uuid.New(), Stance: "x", Domain: "self", Weight: 0}}}
	rec = doJSON(t, r, http.MethodPost, "/beliefs/import", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 2, g.Len())
}

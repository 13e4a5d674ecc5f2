//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadonfilm/enrich/internal/model"
	"github.com/deadonfilm/enrich/internal/monitoring"
	"github.com/deadonfilm/enrich/internal/orch"
	"github.com/deadonfilm/enrich/internal/source"
	"github.com/deadonfilm/enrich/internal/store"
)

func newTestAPI(t *testing.T) (*serveAPI, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	api := &serveAPI{
		store:     st,
		coord:     orch.New([]source.DataSource{}),
		collector: monitoring.NewCollector(st),
		lookback:  24,
	}
	return api, st
}

func seedRun(t *testing.T, st store.Store, name string, status model.RunStatus) *model.Run {
	t.Helper()
	run := &model.Run{
		ID:      "run-" + name,
		Subject: model.Subject{ID: 1, Name: name},
		Status:  status,
		Result: &model.RunResult{
			Enriched:     status == model.RunStatusComplete,
			SourcesTried: 2,
			SourcesOK:    1,
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.SaveRun(context.Background(), run))
	return run
}

func TestServeHealth(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	api.router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServeStatus(t *testing.T) {
	api, st := newTestAPI(t)
	seedRun(t, st, "Gwen Verdon", model.RunStatusComplete)
	seedRun(t, st, "John Kelly", model.RunStatusFailed)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	api.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Progress orch.Progress              `json:"progress"`
		Metrics  monitoring.MetricsSnapshot `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Metrics.RunsTotal)
	assert.Equal(t, 1, body.Metrics.RunsFailed)
	assert.Equal(t, int64(0), body.Progress.Queried)
}

func TestServeListRuns(t *testing.T) {
	api, st := newTestAPI(t)
	seedRun(t, st, "Gwen Verdon", model.RunStatusComplete)
	seedRun(t, st, "John Garfield", model.RunStatusFailed)

	req := httptest.NewRequest(http.MethodGet, "/runs?status=failed", nil)
	rr := httptest.NewRecorder()
	api.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Runs  []model.Run `json:"runs"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "John Garfield", body.Runs[0].Subject.Name)
}

func TestServeListRunsBadLimit(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/runs?limit=nope", nil)
	rr := httptest.NewRecorder()
	api.router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid limit")
}

func TestServeGetRun(t *testing.T) {
	api, st := newTestAPI(t)
	saved := seedRun(t, st, "Gwen Verdon", model.RunStatusComplete)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+url.PathEscape(saved.ID), nil)
	rr := httptest.NewRecorder()
	api.router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var run model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
	assert.Equal(t, saved.ID, run.ID)
	assert.Equal(t, "Gwen Verdon", run.Subject.Name)
}

func TestServeGetRunNotFound(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/runs/nope", nil)
	rr := httptest.NewRecorder()
	api.router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServeEnrichAccepted(t *testing.T) {
	api, _ := newTestAPI(t)

	payload, _ := json.Marshal(map[string]any{"name": "Gwen Verdon", "death_year": 2000})
	req := httptest.NewRequest(http.MethodPost, "/enrich", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	api.router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	assert.Equal(t, "Gwen Verdon", resp["subject"])

	// Let the async run against zero sources finish and persist.
	time.Sleep(50 * time.Millisecond)
}

func TestServeEnrichMissingName(t *testing.T) {
	api, _ := newTestAPI(t)

	payload, _ := json.Marshal(map[string]any{"imdb_id": "nm0001595"})
	req := httptest.NewRequest(http.MethodPost, "/enrich", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	api.router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "name is required")
}

func TestServeEnrichInvalidJSON(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/enrich", bytes.NewReader([]byte("not json")))
	rr := httptest.NewRecorder()
	api.router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(tracker *Tracker) *chi.Mux {
	router := chi.NewRouter()
	api := humachi.New(router, huma.DefaultConfig("Test API", "1.0.0"))
	huma.Register(api, huma.Operation{
		OperationID: "getStatus",
		Method:      http.MethodGet,
		Path:        "/status",
	}, func(_ context.Context, _ *struct{}) (*StatusOutput, error) {
		return &StatusOutput{Body: tracker.Snapshot()}, nil
	})
	return router
}

func TestServer_GetStatus_ReportsTrackedProgress(t *testing.T) {
	tracker := NewTracker(10, nil)
	tracker.RecordChunkDone("worker1")
	tracker.RecordChunkDone("worker1")
	tracker.RecordChunkDone("worker2")

	router := newTestRouter(tracker)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snap Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, 10, snap.TotalChunks)
	assert.Equal(t, 3, snap.Completed)
	assert.Len(t, snap.Hosts, 2)
}

func TestServer_GetStatus_EmptyTrackerReportsZeroProgress(t *testing.T) {
	tracker := NewTracker(5, nil)
	router := newTestRouter(tracker)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snap Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, 5, snap.TotalChunks)
	assert.Equal(t, 0, snap.Completed)
	assert.Empty(t, snap.Hosts)
}

package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"catmigrate/pkg/checkpoint"
	"catmigrate/pkg/logger"
	"catmigrate/pkg/migrate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *checkpoint.Manager, *migrate.RunCounters) {
	t.Helper()

	checkpoints, err := checkpoint.NewManager(filepath.Join(t.TempDir(), "checkpoint.json"), 1)
	require.NoError(t, err)

	counters := migrate.NewRunCounters()
	server := NewServer(":0", checkpoints, counters, logger.NewTestLogger())
	return server, checkpoints, counters
}

func TestRootReturnsReadinessString(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestStatusWithoutCheckpoint(t *testing.T) {
	server, _, counters := newTestServer(t)
	counters.IncChecked()
	counters.IncSkipped()

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Checkpoint)
	assert.Equal(t, "no checkpoint yet", resp.Message)
	assert.Equal(t, int64(1), resp.Counters.Checked)
	assert.Equal(t, int64(1), resp.Counters.Skipped)
}

func TestStatusWithCheckpoint(t *testing.T) {
	server, checkpoints, _ := newTestServer(t)

	itemID := int64(42)
	require.NoError(t, checkpoints.Save(3, &itemID))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Checkpoint)
	assert.Equal(t, 3, resp.Checkpoint.LastPage)
	require.NotNil(t, resp.Checkpoint.LastItemID)
	assert.Equal(t, int64(42), *resp.Checkpoint.LastItemID)
	assert.Empty(t, resp.Message)
}

func TestUnknownPathReturns404(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

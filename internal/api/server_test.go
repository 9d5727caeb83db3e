package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railstatus-simulator/internal/dataset"
	"railstatus-simulator/internal/rail"
	"railstatus-simulator/internal/sim"
)

func testServer(t *testing.T) (*Server, *sim.Manager) {
	t.Helper()
	tt, _, err := dataset.LoadEmbedded()
	require.NoError(t, err)

	mgr := sim.NewManager(tt, sim.Options{Seed: 1})
	mgr.TickNow()
	return NewServer(mgr, tt), mgr
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestListTrains(t *testing.T) {
	srv, mgr := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/v1/trains", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Now    string                `json:"now"`
		Tick   int64                 `json:"tick"`
		Trains []rail.StatusSnapshot `json:"trains"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, mgr.Ticks(), resp.Tick)
	require.Len(t, resp.Trains, 7)
	assert.Equal(t, "12000", resp.Trains[0].TrainID)
}

func TestGetTrain(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/v1/trains/12000", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap rail.StatusSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "12000", snap.TrainID)
	assert.Equal(t, "New Delhi", snap.From)
	assert.Equal(t, "Howrah Junction", snap.To)

	rec = doRequest(t, srv, http.MethodGet, "/v1/trains/99999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOverrideEndpoint(t *testing.T) {
	srv, mgr := testServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/v1/trains/12000/status", map[string]any{
		"status": "Cancelled",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var snap rail.StatusSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, rail.StatusCancelled, snap.Status)
	assert.Equal(t, rail.NextOperationalIssue, snap.NextStation)
	assert.Equal(t, 0, snap.DelayMin)

	// pinned across the next tick
	mgr.TickNow()
	got, err := mgr.Snapshot("12000")
	require.NoError(t, err)
	assert.Equal(t, rail.StatusCancelled, got.Status)
}

func TestOverrideEndpointErrors(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/v1/trains/99999/status", map[string]any{"status": "Delayed", "delay": 5})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodPut, "/v1/trains/12000/status", map[string]any{"status": "Vanished"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPut, "/v1/trains/12000/status", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearOverrideEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/v1/trains/12000/status", map[string]any{"status": "Cancelled"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/v1/trains/12000/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap rail.StatusSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.NotEqual(t, rail.StatusCancelled, snap.Status)

	rec = doRequest(t, srv, http.MethodDelete, "/v1/trains/99999/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSimulationControls(t *testing.T) {
	srv, mgr := testServer(t)
	before := mgr.Ticks()

	rec := doRequest(t, srv, http.MethodPost, "/v1/simulation/tick", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, before+1, mgr.Ticks())

	rec = doRequest(t, srv, http.MethodPost, "/v1/simulation/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sim.DefaultBaseClock, mgr.Now())
}

func TestStationLookup(t *testing.T) {
	srv, _ := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/v1/stations/NDLS", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st rail.Station
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "New Delhi", st.Name)

	// unknown identifiers resolve to themselves
	rec = doRequest(t, srv, http.MethodGet, "/v1/stations/ZZZ", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "ZZZ", st.Name)
}

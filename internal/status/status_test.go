package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polusgg/plugin-polusgg-auth/internal/metrics"
)

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s := New("127.0.0.1:0")

	rec := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["uptime"])
}

func TestStatus(t *testing.T) {
	s := New("127.0.0.1:0")
	s.Update(Stats{Peers: 3, AuthenticatedPeers: 2, Bans: 1, MasterConnected: true})

	rec := get(t, s, "/status")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		UpSince string `json:"up_since"`
		Stats   Stats  `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.UpSince)
	assert.Equal(t, Stats{Peers: 3, AuthenticatedPeers: 2, Bans: 1, MasterConnected: true}, body.Stats)
}

func TestMetrics(t *testing.T) {
	metrics.Register()
	metrics.RecordVerdict("accept")

	s := New("127.0.0.1:0")
	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "authgate_gate_packets_total")
}

func TestUnknownRoute(t *testing.T) {
	s := New("127.0.0.1:0")
	assert.Equal(t, http.StatusNotFound, get(t, s, "/nope").Code)
}

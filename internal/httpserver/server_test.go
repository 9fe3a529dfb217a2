package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepulse/web-analytics-service/internal/config"
	"github.com/pagepulse/web-analytics-service/internal/models"
	"github.com/pagepulse/web-analytics-service/internal/ws"
)

// stubStore satisfies handlers.Store with empty results; pingErr controls
// what the health probes see.
type stubStore struct {
	pingErr error
}

func (s *stubStore) InsertPerformance(context.Context, models.PerformancePayload) (int64, error) {
	return 1, nil
}
func (s *stubStore) InsertSEO(context.Context, models.SEOPayload) (int64, error)   { return 1, nil }
func (s *stubStore) InsertForm(context.Context, models.FormPayload) (int64, error) { return 1, nil }
func (s *stubStore) InsertSession(context.Context, models.UserPayload) (int64, error) {
	return 1, nil
}
func (s *stubStore) ListPerformance(context.Context, int) ([]models.PerformanceRow, error) {
	return []models.PerformanceRow{}, nil
}
func (s *stubStore) ListSEO(context.Context, int) ([]models.SEORow, error) {
	return []models.SEORow{}, nil
}
func (s *stubStore) ListForms(context.Context, int) ([]models.FormRow, error) {
	return []models.FormRow{}, nil
}
func (s *stubStore) ListSessions(context.Context, int) ([]models.SessionRow, error) {
	return []models.SessionRow{}, nil
}
func (s *stubStore) DashboardSummary(context.Context, time.Time) (models.DashboardSummary, error) {
	return models.DashboardSummary{}, nil
}
func (s *stubStore) Ping(context.Context) error { return s.pingErr }

func testServer(t *testing.T, st *stubStore) *httptest.Server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := config.Config{
		APIKeys: map[string]struct{}{"test-key": {}},
	}
	hub := ws.NewHub(log)
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(NewRouter(cfg, st, hub, log))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealth(t *testing.T) {
	srv := testServer(t, &stubStore{})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, serviceName, body["service"])
	assert.Equal(t, serviceVersion, body["version"])
	assert.Equal(t, "ok", body["database"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestHealth_ReportsDeadDatabaseWithout500(t *testing.T) {
	srv := testServer(t, &stubStore{pingErr: errors.New("connection refused")})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unreachable", body["database"])
}

func TestReady(t *testing.T) {
	srv := testServer(t, &stubStore{})
	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	srv2 := testServer(t, &stubStore{pingErr: errors.New("connection refused")})
	resp2, err := http.Get(srv2.URL + "/ready")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}

func TestRouting_OnlyIngestIsKeyed(t *testing.T) {
	srv := testServer(t, &stubStore{})

	// Read side serves without a key.
	for _, path := range []string{"/api/dashboard", "/api/performance", "/api/seo", "/api/forms", "/api/users"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	// Ingest without a key is rejected.
	resp, err := http.Post(srv.URL+"/api/track", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoot_RequiresUpgrade(t *testing.T) {
	srv := testServer(t, &stubStore{})

	// A plain GET to the push channel is not a websocket handshake and
	// must not succeed as one.
	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/docflow/server/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	return config.Config{
		Environment:   "development",
		HTTPAddress:   ":0",
		HandshakeRate: "2-M",
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			Path:   filepath.Join(t.TempDir(), "server.db"),
		},
		Auth: config.AuthConfig{
			JWTSecret:     "server-test-secret",
			SessionSecret: "session-secret-for-testing-32byte",
			SessionCookie: "sessionid",
		},
		History: config.HistoryConfig{
			Throttle:   config.ThrottleStore,
			EditWindow: 300 * time.Second,
		},
		Storage: config.StorageConfig{
			Workers:   2,
			QueueSize: 8,
			Timeout:   time.Second,
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	srv, err := NewServer(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	return srv
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestServer_HealthAndPing(t *testing.T) {
	srv := newTestServer(t)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rooms":0`)

	w = serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_DocumentRoutesRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/api/v1/documents/1/history", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_CORS(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	w := serve(srv, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_HandshakeRateLimit(t *testing.T) {
	srv := newTestServer(t)

	// plain GETs are rejected by the upgrader but still count against the limit
	for range 2 {
		w := serve(srv, httptest.NewRequest(http.MethodGet, "/ws/documents/1", nil))
		assert.NotEqual(t, http.StatusTooManyRequests, w.Code)
	}

	w := serve(srv, httptest.NewRequest(http.MethodGet, "/ws/documents/1", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHandshakeRateLimit_InvalidRate(t *testing.T) {
	cfg := testConfig(t)
	cfg.HandshakeRate = "lots"

	_, err := NewServer(context.Background(), cfg)
	assert.Error(t, err)
}

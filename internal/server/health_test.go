package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, h *HealthChecker, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterHealthEndpoints(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthChecker_Ready(t *testing.T) {
	h := NewHealthChecker(nil, "1.2.3")

	for _, path := range []string{"/healthz", "/readyz", "/healthz/detailed"} {
		rec, body := serveHealth(t, h, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, healthStatusOK, body["status"], path)
	}

	_, body := serveHealth(t, h, "/healthz/detailed")
	assert.Equal(t, "1.2.3", body["version"])
	assert.NotEmpty(t, body["uptime"])
}

func TestHealthChecker_NotReady(t *testing.T) {
	h := NewHealthChecker(nil, "")
	h.SetReady(false)
	assert.False(t, h.IsReady())

	rec, _ := serveHealth(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores readiness")

	rec, body := serveHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusNotReady, body["status"])
	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, healthStatusNotReady, checks["ready"])

	rec, body = serveHealth(t, h, "/healthz/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusNotReady, body["status"])
}

func TestHealthChecker_ShuttingDown(t *testing.T) {
	sc := newTestServerContext(t)
	h := NewHealthChecker(sc, "")
	require.NoError(t, sc.Shutdown())

	rec, body := serveHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, healthStatusShuttingDown, checks["shutdown"])

	rec, body = serveHealth(t, h, "/healthz/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusShuttingDown, body["status"])
	assert.Error(t, sc.Context().Err())
}

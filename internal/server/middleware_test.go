package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRequireBearer(t *testing.T) {
	handler := RequireBearer(newTestResolver(t), nil, okHandler)

	tests := []struct {
		name       string
		auth       string
		wantStatus int
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", auth: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", auth: "Basic " + testServerToken, wantStatus: http.StatusUnauthorized},
		{name: "valid token", auth: "Bearer " + testServerToken, wantStatus: http.StatusNoContent},
		{name: "case-insensitive scheme", auth: "bearer " + testServerToken, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, EndpointPath, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusUnauthorized {
				return
			}
			assert.Equal(t, `Bearer realm="inboxreader"`, rec.Header().Get("WWW-Authenticate"))
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Unauthorized", body["error"])
		})
	}
}

func TestRequireBearer_IgnoresBackendToken(t *testing.T) {
	handler := RequireBearer(newTestResolver(t), nil, okHandler)

	req := httptest.NewRequest(http.MethodPost, EndpointPath, nil)
	req.Header.Set("Authorization", "Bearer "+testServerToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code, "backend token is checked per tool call")
}

func TestRateLimiter_Reserve(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	defer rl.Stop()

	assert.Zero(t, rl.Reserve("10.0.0.1"))
	assert.Zero(t, rl.Reserve("10.0.0.1"))
	assert.Positive(t, rl.Reserve("10.0.0.1"), "burst exhausted")

	assert.Zero(t, rl.Reserve("10.0.0.2"), "other clients keep their own budget")
	assert.Equal(t, 2, rl.size())
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	defer rl.Stop()

	for i := 0; i < DefaultRateBurst; i++ {
		require.Zero(t, rl.Reserve("10.0.0.1"), "request %d", i)
	}
	assert.Positive(t, rl.Reserve("10.0.0.1"))
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	rl.Reserve("10.0.0.1")
	rl.evictIdle(time.Now())
	assert.Equal(t, 1, rl.size())

	rl.evictIdle(time.Now().Add(limiterIdleTTL + time.Second))
	assert.Zero(t, rl.size())
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	defer rl.Stop()
	handler := rl.Middleware(okHandler)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, EndpointPath, nil)
		req.RemoteAddr = "192.0.2.7:41234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do().Code)

	rec := do()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEqual(t, "0", rec.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:41234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.RemoteAddr = "no-port"
	assert.Equal(t, "no-port", clientIP(req))
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec}

	_, err := sr.Write([]byte("x"))
	require.NoError(t, err)
	sr.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusOK, sr.status, "first status wins")

	sr.Flush()
	assert.True(t, rec.Flushed)
	assert.Same(t, rec, sr.Unwrap())
}

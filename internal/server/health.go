package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker serves the liveness and readiness probes. None of its
// endpoints require credentials.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	version       string
	startTime     time.Time
}

// NewHealthChecker returns a checker that starts out ready. sc may be nil.
func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		version:       version,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady flips readiness, e.g. to drain before shutdown.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness flag.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
}

// checks evaluates readiness. ok is false if any check fails.
func (h *HealthChecker) checks() (map[string]string, bool) {
	checks := map[string]string{"ready": healthStatusOK, "shutdown": healthStatusOK}
	ok := true
	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		ok = false
	}
	if h.serverContext != nil && h.serverContext.IsShutdown() {
		checks["shutdown"] = healthStatusShuttingDown
		ok = false
	}
	return checks, ok
}

func writeHealth(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler serves /healthz. It answers ok while the process runs.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, ok := h.checks()
		if !ok {
			writeHealth(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
			return
		}
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
	})
}

// DetailedHealthHandler serves /healthz/detailed.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := DetailedHealthResponse{
			Status:  healthStatusOK,
			Version: h.version,
			Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
		}
		checks, ok := h.checks()
		if ok {
			writeHealth(w, http.StatusOK, resp)
			return
		}
		resp.Status = checks["ready"]
		if checks["shutdown"] != healthStatusOK {
			resp.Status = healthStatusShuttingDown
		}
		writeHealth(w, http.StatusServiceUnavailable, resp)
	})
}

// RegisterHealthEndpoints mounts the probes on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	statusOK           = "ok"
	statusNotReady     = "not ready"
	statusShuttingDown = "shutting down"
)

var (
	errNotReady     = errors.New(statusNotReady)
	errShuttingDown = errors.New(statusShuttingDown)
)

// ReadinessCheck reports a dependency problem. A nil error means healthy.
type ReadinessCheck func() error

// HealthChecker serves liveness, readiness and a detailed agent view.
// The built-in "ready" and "shutdown" checks are always evaluated.
type HealthChecker struct {
	sc      *ServerContext
	started time.Time
	ready   atomic.Bool

	mu     sync.RWMutex
	checks map[string]ReadinessCheck
}

// NewHealthChecker returns a ready checker. sc may be nil.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{sc: sc, started: time.Now()}
	h.ready.Store(true)
	h.checks = map[string]ReadinessCheck{
		"ready": func() error {
			if !h.ready.Load() {
				return errNotReady
			}
			return nil
		},
		"shutdown": func() error {
			if h.shuttingDown() {
				return errShuttingDown
			}
			return nil
		},
	}
	return h
}

// SetReady flips the built-in ready check, e.g. to drain before shutdown.
func (h *HealthChecker) SetReady(ready bool) { h.ready.Store(ready) }

// AddCheck registers a named readiness check such as "gmail". Registering
// an existing name replaces it.
func (h *HealthChecker) AddCheck(name string, check ReadinessCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *HealthChecker) shuttingDown() bool {
	return h.sc != nil && h.sc.IsShutdown()
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse extends HealthResponse with uptime and agent state.
type DetailedHealthResponse struct {
	Status      string            `json:"status"`
	Uptime      string            `json:"uptime"`
	Checks      map[string]string `json:"checks,omitempty"`
	AIAvailable bool              `json:"aiAvailable"`
	Scheduler   *SchedulerHealth  `json:"scheduler,omitempty"`
}

type SchedulerHealth struct {
	Running   bool      `json:"running"`
	TotalRuns int       `json:"totalRuns"`
	LastRunAt time.Time `json:"lastRunAt,omitempty"`
	NextRunAt time.Time `json:"nextRunAt,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

// evaluate runs every check in name order. It returns the per-check
// results and the overall status.
func (h *HealthChecker) evaluate() (map[string]string, string) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	status := statusOK
	for _, name := range names {
		if err := h.checks[name](); err != nil {
			results[name] = err.Error()
			status = statusNotReady
			continue
		}
		results[name] = statusOK
	}
	h.mu.RUnlock()

	if h.shuttingDown() {
		status = statusShuttingDown
	}
	return results, status
}

// LivenessHandler serves /healthz. It reports ok whenever the process
// answers.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: statusOK})
	})
}

// ReadinessHandler serves /readyz with 503 when any check fails.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, status := h.evaluate()
		if status == statusShuttingDown {
			status = statusNotReady
		}
		writeJSON(w, httpStatus(status), HealthResponse{Status: status, Checks: checks})
	})
}

// DetailedHealthHandler serves /healthz/detailed.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, status := h.evaluate()
		resp := DetailedHealthResponse{
			Status: status,
			Uptime: time.Since(h.started).Truncate(time.Second).String(),
			Checks: checks,
		}
		if h.sc != nil {
			if a := h.sc.Agent(); a != nil {
				st := a.SchedulerStats()
				resp.AIAvailable = a.AIAvailable()
				resp.Scheduler = &SchedulerHealth{
					Running:   st.Running,
					TotalRuns: st.TotalRuns,
					LastRunAt: st.LastRunAt,
					NextRunAt: st.NextRunAt,
					LastError: st.LastError,
				}
			}
		}
		writeJSON(w, httpStatus(status), resp)
	})
}

// RegisterHealthEndpoints mounts the three health routes on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

func httpStatus(status string) int {
	if status == statusOK {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

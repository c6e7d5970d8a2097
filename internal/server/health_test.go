package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, target string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	return rec.Code
}

func TestLiveness(t *testing.T) {
	h := NewHealthChecker(nil)
	h.SetReady(false)

	var resp HealthResponse
	assert.Equal(t, http.StatusOK, get(t, h.LivenessHandler(), "/healthz", &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		ready    bool
		check    error
		shutdown bool
		code     int
	}{
		{"all ok", true, nil, false, http.StatusOK},
		{"not ready", false, nil, false, http.StatusServiceUnavailable},
		{"gmail unavailable", true, errors.New("circuit breaker open"), false, http.StatusServiceUnavailable},
		{"shutting down", true, nil, true, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newTestServerContext(t)
			h := NewHealthChecker(sc)
			h.SetReady(tt.ready)
			h.AddCheck("gmail", func() error { return tt.check })
			if tt.shutdown {
				require.NoError(t, sc.Shutdown())
			}

			var resp HealthResponse
			code := get(t, h.ReadinessHandler(), "/readyz", &resp)
			assert.Equal(t, tt.code, code)
			if tt.check != nil {
				assert.Equal(t, tt.check.Error(), resp.Checks["gmail"])
			} else {
				assert.Equal(t, "ok", resp.Checks["gmail"])
			}
		})
	}
}

func TestDetailedHealth(t *testing.T) {
	sc := newTestServerContext(t)
	h := NewHealthChecker(sc)

	var resp DetailedHealthResponse
	code := get(t, h.DetailedHealthHandler(), "/healthz/detailed", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Uptime)
	assert.False(t, resp.AIAvailable)
	require.NotNil(t, resp.Scheduler)
	assert.False(t, resp.Scheduler.Running)

	require.NoError(t, sc.Shutdown())
	code = get(t, h.DetailedHealthHandler(), "/healthz/detailed", &resp)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "shutting down", resp.Status)
}

func TestServerContextShutdown(t *testing.T) {
	sc := newTestServerContext(t)
	assert.Equal(t, "default", sc.Account())
	assert.NotNil(t, sc.Agent())

	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())
}

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probeStatus(t *testing.T, fn http.HandlerFunc) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec.Code, body
}

func startService(t *testing.T, s *Service) {
	t.Helper()
	s.Start(context.Background(), 50*time.Millisecond)
	t.Cleanup(s.Stop)
}

func TestReadyEndpointGatedManually(t *testing.T) {
	s := New()
	startService(t, s)

	code, body := probeStatus(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body["status"])

	s.SetReady(true)
	code, body = probeStatus(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestFailingReadinessCheck(t *testing.T) {
	s := New()
	s.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})
	startService(t, s)
	s.SetReady(true)

	time.Sleep(100 * time.Millisecond)

	code, body := probeStatus(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	failures, ok := body["failures"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, failures, "db")

	// A failing readiness check must not affect liveness.
	code, _ = probeStatus(t, s.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)
}

func TestFailingLivenessCheckAffectsBothProbes(t *testing.T) {
	s := New()
	s.AddLivenessCheck("deadlock", time.Second, func(context.Context) error {
		return errors.New("stuck")
	})
	startService(t, s)
	s.SetReady(true)

	time.Sleep(100 * time.Millisecond)

	code, _ := probeStatus(t, s.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	code, _ = probeStatus(t, s.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}

package output

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

func TestPrometheusMetrics(t *testing.T) {
	internal := domain.NewDetectionMetrics()
	m := NewPrometheusMetrics("", internal)

	internal.IncrementEntries()
	internal.IncrementEntries()
	internal.IncrementAttempts()
	internal.SetTrackedAddresses(4)
	m.IncrementEntriesByResult("unmatched")
	m.IncrementEntriesByResult("attempt")
	m.OnAlert(domain.NewAlert("10.0.0.7", 5, 5, nil))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.entriesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.attemptsTotal))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.trackedAddresses))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.alertsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.entriesByResult.WithLabelValues("attempt")))
	assert.Greater(t, testutil.ToFloat64(m.lastAlert), float64(0))
}

func TestPrometheusMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusMetrics("sshradar", nil)
		NewPrometheusMetrics("sshradar", nil)
	})
}

type stubEngine struct {
	state domain.EngineState
	snap  domain.MetricsSnapshot
}

func (s stubEngine) State() domain.EngineState       { return s.state }
func (s stubEngine) Metrics() domain.MetricsSnapshot { return s.snap }

func TestHealthChecker(t *testing.T) {
	tests := []struct {
		name     string
		state    domain.EngineState
		code     int
		healthy  bool
		hasCause bool
	}{
		{"waiting", domain.StateWaiting, http.StatusOK, true, false},
		{"alerting", domain.StateAlerting, http.StatusOK, true, false},
		{"init", domain.StateInit, http.StatusServiceUnavailable, false, true},
		{"failed", domain.StateFailed, http.StatusServiceUnavailable, false, true},
		{"stopped", domain.StateStopped, http.StatusServiceUnavailable, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthChecker(stubEngine{state: tc.state, snap: domain.MetricsSnapshot{AlertsRaised: 2}})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.healthy, body.Healthy)
			assert.Equal(t, tc.state.String(), body.Status)
			assert.Equal(t, int64(2), body.AlertsRaised)
			assert.Equal(t, tc.hasCause, body.Reason != "")
		})
	}
}

func TestHealthChecker_SinkFailuresReported(t *testing.T) {
	h := NewHealthChecker(stubEngine{state: domain.StateWaiting, snap: domain.MetricsSnapshot{SinkFailures: 1}})
	status := h.Check()
	assert.True(t, status.Healthy)
	assert.NotEmpty(t, status.Reason)
}

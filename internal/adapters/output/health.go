package output

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

// EngineStatus is the read-only view of the detection engine the health
// endpoint needs.
type EngineStatus interface {
	State() domain.EngineState
	Metrics() domain.MetricsSnapshot
}

type HealthStatus struct {
	Healthy          bool    `json:"healthy"`
	Status           string  `json:"status"`
	EntriesSeen      int64   `json:"entries_seen"`
	FailedAttempts   int64   `json:"failed_attempts"`
	AlertsRaised     int64   `json:"alerts_raised"`
	SinkFailures     int64   `json:"sink_failures"`
	TrackedAddresses int64   `json:"tracked_addresses"`
	SecondsSinceLast float64 `json:"seconds_since_last_event,omitempty"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	Reason           string  `json:"reason,omitempty"`
}

type HealthChecker struct {
	engine EngineStatus
	now    func() time.Time
}

func NewHealthChecker(engine EngineStatus) *HealthChecker {
	return &HealthChecker{engine: engine, now: time.Now}
}

func (h *HealthChecker) Check() HealthStatus {
	state := h.engine.State()
	snap := h.engine.Metrics()

	status := HealthStatus{
		Healthy:          state.Live(),
		Status:           state.String(),
		EntriesSeen:      snap.EntriesSeen,
		FailedAttempts:   snap.FailedAttempts,
		AlertsRaised:     snap.AlertsRaised,
		SinkFailures:     snap.SinkFailures,
		TrackedAddresses: snap.TrackedAddresses,
		UptimeSeconds:    snap.Uptime.Seconds(),
	}
	if !snap.LastEventAt.IsZero() {
		status.SecondsSinceLast = h.now().Sub(snap.LastEventAt).Seconds()
	}

	switch {
	case state == domain.StateInit:
		status.Reason = "event source not positioned yet"
	case !status.Healthy:
		status.Reason = "detection loop terminated"
	case snap.SinkFailures > 0:
		status.Reason = "some alerts could not be written"
	}
	return status
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check()

	body, err := json.Marshal(status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if status.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_, _ = w.Write(body)
}

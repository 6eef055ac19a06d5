package domain

import (
	"sync/atomic"
	"time"
)

// EngineState is the detection loop's position in its state machine.
type EngineState int32

const (
	StateInit EngineState = iota
	StateWaiting
	StateProcessing
	StateAlerting
	StateStopped
	StateFailed
)

func (s EngineState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateWaiting:
		return "WAITING"
	case StateProcessing:
		return "PROCESSING"
	case StateAlerting:
		return "ALERTING"
	case StateStopped:
		return "STOPPED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Live reports whether the engine is still consuming events.
func (s EngineState) Live() bool {
	return s == StateWaiting || s == StateProcessing || s == StateAlerting
}

type MetricsSnapshot struct {
	EntriesSeen      int64
	FailedAttempts   int64
	AlertsRaised     int64
	SinkFailures     int64
	TrackedAddresses int64
	LastEventAt      time.Time
	Uptime           time.Duration
	StartTime        time.Time
}

// DetectionMetrics is written by the single engine goroutine and read from
// metrics and health handlers, hence atomics throughout.
type DetectionMetrics struct {
	entriesSeen      atomic.Int64
	failedAttempts   atomic.Int64
	alertsRaised     atomic.Int64
	sinkFailures     atomic.Int64
	trackedAddresses atomic.Int64
	lastEventAt      atomic.Int64
	StartTime        time.Time
}

func NewDetectionMetrics() *DetectionMetrics {
	return &DetectionMetrics{
		StartTime: time.Now(),
	}
}

func (m *DetectionMetrics) IncrementEntries() {
	m.entriesSeen.Add(1)
	m.lastEventAt.Store(time.Now().UnixNano())
}

func (m *DetectionMetrics) IncrementAttempts() {
	m.failedAttempts.Add(1)
}

func (m *DetectionMetrics) IncrementAlerts() {
	m.alertsRaised.Add(1)
}

func (m *DetectionMetrics) IncrementSinkFailures() {
	m.sinkFailures.Add(1)
}

func (m *DetectionMetrics) SetTrackedAddresses(n int) {
	m.trackedAddresses.Store(int64(n))
}

func (m *DetectionMetrics) EntriesSeen() int64      { return m.entriesSeen.Load() }
func (m *DetectionMetrics) FailedAttempts() int64   { return m.failedAttempts.Load() }
func (m *DetectionMetrics) AlertsRaised() int64     { return m.alertsRaised.Load() }
func (m *DetectionMetrics) SinkFailures() int64     { return m.sinkFailures.Load() }
func (m *DetectionMetrics) TrackedAddresses() int64 { return m.trackedAddresses.Load() }

func (m *DetectionMetrics) GetSnapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		EntriesSeen:      m.entriesSeen.Load(),
		FailedAttempts:   m.failedAttempts.Load(),
		AlertsRaised:     m.alertsRaised.Load(),
		SinkFailures:     m.sinkFailures.Load(),
		TrackedAddresses: m.trackedAddresses.Load(),
		Uptime:           time.Since(m.StartTime),
		StartTime:        m.StartTime,
	}
	if ns := m.lastEventAt.Load(); ns != 0 {
		snap.LastEventAt = time.Unix(0, ns)
	}
	return snap
}

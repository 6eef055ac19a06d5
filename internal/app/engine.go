package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/sshradar/internal/adapters/detection"
	"github.com/xoelrdgz/sshradar/internal/domain"
	"github.com/xoelrdgz/sshradar/internal/ports"
)

var (
	// ErrSourceFailure marks every error Run returns because the event
	// source broke. External supervision is expected to restart the engine.
	ErrSourceFailure = errors.New("event source failure")

	ErrAlreadyRunning = errors.New("engine already running")
)

const (
	ResultUnmatched = "unmatched"
	ResultAttempt   = "attempt"
	ResultAlert     = "alert"
)

type EngineConfig struct {
	Threshold    int
	IdleInterval time.Duration
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Threshold:    DefaultThreshold,
		IdleInterval: DefaultIdleInterval,
	}
}

// Engine is the detection loop: one sequential consumer that reads the event
// source, matches failed passwords, counts them per address and publishes an
// alert when an address reaches the threshold.
//
// The attempt counter is created fresh by every Run and touched only by the
// loop goroutine, so it needs no locking. State and metrics are atomics and
// may be read from any goroutine.
type Engine struct {
	source  ports.EventSource
	matcher ports.AttemptMatcher
	sink    ports.AlertSink

	threshold atomic.Int64
	idle      time.Duration

	counter   *detection.AttemptCounter
	metrics   *domain.DetectionMetrics
	state     atomic.Int32
	subs      []ports.AlertSubscriber
	observers []ports.ProcessingObserver

	mu      sync.Mutex
	running bool
}

func NewEngine(source ports.EventSource, matcher ports.AttemptMatcher, sink ports.AlertSink, config EngineConfig) *Engine {
	if matcher == nil {
		matcher = detection.NewFailedPasswordMatcher()
	}
	if config.Threshold < 1 {
		config.Threshold = DefaultThreshold
	}
	if config.IdleInterval <= 0 {
		config.IdleInterval = DefaultIdleInterval
	}

	e := &Engine{
		source:  source,
		matcher: matcher,
		sink:    sink,
		idle:    config.IdleInterval,
		counter: detection.NewAttemptCounter(),
		metrics: domain.NewDetectionMetrics(),
	}
	e.threshold.Store(int64(config.Threshold))
	return e
}

// AddAlertSubscriber must be called before Run.
func (e *Engine) AddAlertSubscriber(sub ports.AlertSubscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, sub)
}

// AddProcessingObserver must be called before Run.
func (e *Engine) AddProcessingObserver(obs ports.ProcessingObserver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, obs)
}

func (e *Engine) Threshold() int {
	return int(e.threshold.Load())
}

// SetThreshold changes the threshold for subsequent decisions. Values below
// one are ignored.
func (e *Engine) SetThreshold(n int) {
	if n < 1 {
		return
	}
	old := e.threshold.Swap(int64(n))
	if old != int64(n) {
		log.Info().Int64("old", old).Int("new", n).Msg("Attempt threshold updated")
	}
}

func (e *Engine) State() domain.EngineState {
	return domain.EngineState(e.state.Load())
}

func (e *Engine) setState(s domain.EngineState) {
	e.state.Store(int32(s))
}

func (e *Engine) Metrics() domain.MetricsSnapshot {
	return e.metrics.GetSnapshot()
}

func (e *Engine) InternalMetrics() *domain.DetectionMetrics {
	return e.metrics
}

// Run blocks until ctx is cancelled or the event source fails. It returns nil
// on cancellation and an error marked with ErrSourceFailure otherwise. The
// source and sink are closed before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	e.running = true
	e.counter = detection.NewAttemptCounter()
	e.metrics.SetTrackedAddresses(0)
	e.mu.Unlock()

	defer func() {
		e.release()
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	e.setState(domain.StateInit)
	if err := e.source.SeekTail(ctx); err != nil {
		return e.terminate(ctx, err)
	}

	log.Info().
		Int("threshold", e.Threshold()).
		Dur("idle_interval", e.idle).
		Msg("Monitoring for brute-force attempts")

	for {
		e.setState(domain.StateWaiting)

		ready, err := e.source.Wait(ctx, e.idle)
		if err != nil {
			return e.terminate(ctx, err)
		}
		if !ready {
			continue
		}

		entry, err := e.source.Next()
		if err != nil {
			return e.terminate(ctx, err)
		}
		if entry == nil {
			continue
		}

		e.process(ctx, entry)
	}
}

func (e *Engine) process(ctx context.Context, entry *domain.LogEntry) {
	e.setState(domain.StateProcessing)
	e.metrics.IncrementEntries()

	msg, ok := entry.Text()
	if !ok {
		e.observe(ResultUnmatched)
		return
	}
	addr, ok := e.matcher.Match(msg)
	if !ok {
		e.observe(ResultUnmatched)
		return
	}

	e.metrics.IncrementAttempts()
	count := e.counter.Record(addr)
	e.metrics.SetTrackedAddresses(e.counter.Len())

	threshold := e.Threshold()
	if !e.counter.ThresholdReached(addr, threshold) {
		log.Debug().Str("ip", addr.String()).Int("count", count).Int("threshold", threshold).Msg("Failed password attempt")
		e.observe(ResultAttempt)
		return
	}

	e.raise(ctx, addr, count, threshold, entry)
	e.observe(ResultAlert)
}

// raise publishes the alert and resets addr before the next entry is read.
// A failed publish drops the alert; the counter is reset either way.
func (e *Engine) raise(ctx context.Context, addr domain.SourceAddress, count, threshold int, entry *domain.LogEntry) {
	e.setState(domain.StateAlerting)
	defer func() {
		e.counter.Reset(addr)
		e.metrics.SetTrackedAddresses(e.counter.Len())
	}()

	alert := domain.NewAlert(addr, count, threshold, entry)
	if err := e.sink.Publish(ctx, alert); err != nil {
		e.metrics.IncrementSinkFailures()
		log.Error().Err(err).Str("ip", addr.String()).Msg("Failed to publish alert, dropping it")
		return
	}

	e.metrics.IncrementAlerts()
	log.Warn().
		Str("ip", addr.String()).
		Int("attempts", count).
		Str("alert_id", alert.ID).
		Msg("Brute-force attempt detected")

	for _, sub := range e.subs {
		e.notify(sub, alert)
	}
}

func (e *Engine) notify(sub ports.AlertSubscriber, alert *domain.Alert) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Alert subscriber panic recovered")
		}
	}()
	sub.OnAlert(alert)
}

func (e *Engine) observe(result string) {
	for _, obs := range e.observers {
		obs.IncrementEntriesByResult(result)
	}
}

// terminate classifies why the loop ended and emits the final status line.
func (e *Engine) terminate(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		e.setState(domain.StateStopped)
		log.Info().Msg("Detection stopped by request")
		return nil
	}

	e.setState(domain.StateFailed)
	failure := errors.Mark(errors.Wrap(err, "event source failed"), ErrSourceFailure)
	log.Error().Err(failure).Msg("Detection failed")
	return failure
}

func (e *Engine) release() {
	if err := e.source.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event source")
	}
	if err := e.sink.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing alert sink")
	}
}

package output

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

type PrometheusMetrics struct {
	registry *prometheus.Registry

	entriesTotal     prometheus.CounterFunc
	entriesByResult  *prometheus.CounterVec
	attemptsTotal    prometheus.CounterFunc
	alertsTotal      prometheus.Counter
	sinkFailures     prometheus.CounterFunc
	trackedAddresses prometheus.GaugeFunc
	lastAlert        prometheus.Gauge

	server *http.Server
	mu     sync.Mutex
}

type MetricsConfig struct {
	Addr       string
	Path       string
	HealthPath string
}

func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Addr:       ":9090",
		Path:       "/metrics",
		HealthPath: "/ready",
	}
}

// NewPrometheusMetrics registers the detector's metrics on a private
// registry, so several instances can coexist in one process.
func NewPrometheusMetrics(namespace string, internal *domain.DetectionMetrics) *PrometheusMetrics {
	if namespace == "" {
		namespace = "sshradar"
	}
	if internal == nil {
		internal = domain.NewDetectionMetrics()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &PrometheusMetrics{registry: reg}

	m.entriesTotal = factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entries_total",
		Help:      "Log entries delivered by the event source",
	}, func() float64 { return float64(internal.EntriesSeen()) })

	m.entriesByResult = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entries_by_result_total",
		Help:      "Log entries by classification (unmatched, attempt, alert)",
	}, []string{"result"})

	m.attemptsTotal = factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failed_attempts_total",
		Help:      "Failed password attempts recognized",
	}, func() float64 { return float64(internal.FailedAttempts()) })

	m.alertsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_total",
		Help:      "Alerts published",
	})

	m.sinkFailures = factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_failures_total",
		Help:      "Alerts dropped because the alert sink could not be written",
	}, func() float64 { return float64(internal.SinkFailures()) })

	m.trackedAddresses = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_addresses",
		Help:      "Distinct source addresses held by the attempt counter",
	}, func() float64 { return float64(internal.TrackedAddresses()) })

	m.lastAlert = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_alert_timestamp_seconds",
		Help:      "Unix time of the most recent alert",
	})

	return m
}

func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// OnAlert implements ports.AlertSubscriber.
func (m *PrometheusMetrics) OnAlert(alert *domain.Alert) {
	m.alertsTotal.Inc()
	m.lastAlert.Set(float64(alert.Timestamp.Unix()))
}

// IncrementEntriesByResult implements ports.ProcessingObserver.
func (m *PrometheusMetrics) IncrementEntriesByResult(result string) {
	m.entriesByResult.WithLabelValues(result).Inc()
}

// StartServer serves /metrics and, if health is non-nil, the readiness
// endpoint on config.Addr.
func (m *PrometheusMetrics) StartServer(config MetricsConfig, health http.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if config.Path == "" {
		config.Path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(config.Path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	if health != nil && config.HealthPath != "" {
		mux.Handle(config.HealthPath, health)
	}

	m.server = &http.Server{
		Addr:              config.Addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func(srv *http.Server) {
		log.Info().Str("addr", config.Addr).Str("path", config.Path).Msg("Starting Prometheus metrics server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}(m.server)

	return nil
}

func (m *PrometheusMetrics) StopServer() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		return m.server.Close()
	}
	return nil
}

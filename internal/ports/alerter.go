package ports

import (
	"context"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

// AlertSink is the append-only destination for triggered alerts.
//
// Implementations:
//   - FileSink: one address per line, read by the notifier process
//   - JSONSink: JSON-lines audit log
//   - MultiSink: fan-out over several sinks
type AlertSink interface {
	// Publish appends a single alert. A failed publish drops that alert;
	// callers do not retry.
	Publish(ctx context.Context, alert *domain.Alert) error

	// Close flushes and releases the destination.
	Close() error
}

// AlertSubscriber is notified synchronously after an alert was published.
// Implementations should return quickly; the engine loop waits on them.
type AlertSubscriber interface {
	OnAlert(alert *domain.Alert)
}

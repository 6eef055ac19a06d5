package output

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/sshradar/internal/domain"
	"github.com/xoelrdgz/sshradar/internal/ports"
)

// MultiSink publishes to a primary sink (the alert feed) and then to any
// number of audit sinks. Only the primary decides whether the alert was
// published; audit failures are logged and do not fail the publish.
type MultiSink struct {
	primary ports.AlertSink
	audit   []ports.AlertSink
}

func NewMultiSink(primary ports.AlertSink, audit ...ports.AlertSink) *MultiSink {
	return &MultiSink{primary: primary, audit: audit}
}

func (m *MultiSink) Publish(ctx context.Context, alert *domain.Alert) error {
	if err := m.primary.Publish(ctx, alert); err != nil {
		return err
	}
	for _, s := range m.audit {
		if err := s.Publish(ctx, alert); err != nil {
			log.Warn().Err(err).
				Str("ip", alert.SourceAddress.String()).
				Str("alert_id", alert.ID).
				Msg("Failed to write alert to audit log")
		}
	}
	return nil
}

func (m *MultiSink) Close() error {
	errs := m.primary.Close()
	for _, s := range m.audit {
		if err := s.Close(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

// Package input provides the event sources sshradar can consume: the systemd
// journal, a syslog-format auth log, and an in-memory stream.
package input

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

var (
	// ErrSourceClosed is returned once a source has been closed or its
	// underlying stream ended.
	ErrSourceClosed = errors.New("event source closed")
	// ErrNotPositioned is returned by Wait/Next before SeekTail succeeded.
	ErrNotPositioned = errors.New("event source not positioned: call SeekTail first")
)

const defaultIdleTimeout = time.Second

// pump hands entries from a producer goroutine to the single consumer.
// It implements the one suspension primitive all streaming sources share:
// wake on entry, on error, on cancellation, or when the idle timer fires.
type pump struct {
	entries   chan *domain.LogEntry
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
	pending   *domain.LogEntry
}

func newPump(bufferSize int) *pump {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &pump{
		entries: make(chan *domain.LogEntry, bufferSize),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
}

// deliver blocks until the entry is queued. It returns false if the pump
// was shut down or ctx was cancelled first.
func (p *pump) deliver(ctx context.Context, entry *domain.LogEntry) bool {
	select {
	case p.entries <- entry:
		return true
	case <-p.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// fail records a terminal producer error. Only the first one is kept.
func (p *pump) fail(err error) {
	select {
	case p.errs <- err:
	default:
	}
}

func (p *pump) wait(ctx context.Context, timeout time.Duration) (bool, error) {
	if p.pending != nil {
		return true, nil
	}
	if timeout <= 0 {
		timeout = defaultIdleTimeout
	}

	// Queued entries win over a producer error raised after them.
	select {
	case entry := <-p.entries:
		p.pending = entry
		return true, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case entry := <-p.entries:
		p.pending = entry
		return true, nil
	case err := <-p.errs:
		return false, err
	case <-p.done:
		return false, ErrSourceClosed
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return false, nil
	}
}

func (p *pump) next() (*domain.LogEntry, error) {
	if entry := p.pending; entry != nil {
		p.pending = nil
		return entry, nil
	}
	select {
	case entry := <-p.entries:
		return entry, nil
	case <-p.done:
		return nil, ErrSourceClosed
	default:
		return nil, nil
	}
}

func (p *pump) shutdown() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

func (p *pump) closed() <-chan struct{} {
	return p.done
}

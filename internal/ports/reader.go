// Package ports defines the interfaces between the detection engine and the
// infrastructure around it (event sources, alert outputs, observers).
//
// Design Principles:
//   - Interfaces are small and focused
//   - Dependencies flow inward (domain has no infrastructure imports)
//   - Implementations live in internal/adapters/
package ports

import (
	"context"
	"time"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

// EventSource is an ordered, appendable stream of log entries.
//
// Implementations:
//   - JournalSource: systemd journal via journalctl JSON output
//   - FileSource: syslog-format auth log followed with tail
//   - MemorySource: in-process stream for tests and demo mode
//
// Thread Safety: Only one consumer may call Wait/Next. Close may be called
// from any goroutine.
type EventSource interface {
	// SeekTail positions the cursor at the current end of the stream.
	// Entries that already exist are never delivered afterwards.
	//
	// Returns:
	//   - nil once the source is positioned and live
	//   - Error if the underlying stream cannot be opened
	SeekTail(ctx context.Context) error

	// Wait blocks until an entry is available, the timeout elapses, or ctx
	// is cancelled, whichever comes first.
	//
	// Returns:
	//   - (true, nil) when Next will return an entry without blocking
	//   - (false, nil) when the timeout elapsed with nothing available
	//   - (false, ctx.Err()) on cancellation
	//   - (false, err) when the stream failed; this is not recoverable
	Wait(ctx context.Context, timeout time.Duration) (bool, error)

	// Next returns the entry signalled by Wait, or nil if none is pending.
	Next() (*domain.LogEntry, error)

	// Close releases the stream. Safe to call more than once.
	Close() error
}

// LineParser turns one raw text line into a log entry.
type LineParser interface {
	Parse(line string) (*domain.LogEntry, error)
	Format() string
}

// Package output provides alert destinations and observability adapters.
//
// This file implements the alert feed read by the notifier process:
//   - FileSink: one source address per line, appended with O_APPEND
//
// Thread Safety: all sinks are safe for concurrent Publish calls, although
// the detection engine only ever calls them from one goroutine.
package output

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

var ErrEmptyAlertPath = errors.New("alert file path is empty")

// alertFileMode lets a notifier running as the desktop user read a feed
// written by a root-owned detector.
const alertFileMode = 0o644

// FileSink appends alerts to a shared text file, one address per line.
//
// Each alert is written with a single write(2) on a descriptor opened with
// O_APPEND, so concurrent readers never observe a partial line. The file is
// never truncated or rotated.
type FileSink struct {
	path string
	sync bool
	mu   sync.Mutex
	file *os.File
}

type FileSinkConfig struct {
	Path string
	// NoSync skips fsync after each append.
	NoSync bool
}

// NewFileSink creates the sink and tries to open the file up front. An open
// failure is only logged: publishing reopens lazily, and a failed publish
// drops that one alert without stopping detection.
func NewFileSink(config FileSinkConfig) (*FileSink, error) {
	if config.Path == "" {
		return nil, ErrEmptyAlertPath
	}
	s := &FileSink{
		path: filepath.Clean(config.Path),
		sync: !config.NoSync,
	}

	s.mu.Lock()
	if err := s.openLocked(); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("Alert file not writable yet, will retry on publish")
	}
	s.mu.Unlock()

	return s, nil
}

func (s *FileSink) openLocked() error {
	if s.file != nil {
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, alertFileMode)
	if err != nil {
		return errors.Wrapf(err, "open alert file %s", s.path)
	}
	s.file = f
	return nil
}

// Publish appends "<address>\n".
func (s *FileSink) Publish(ctx context.Context, alert *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		return err
	}

	line := alert.Line()
	n, err := s.file.Write(line)
	if err == nil && n < len(line) {
		err = errors.Newf("short write: %d of %d bytes", n, len(line))
	}
	if err == nil && s.sync {
		err = s.file.Sync()
	}
	if err != nil {
		// Drop the handle so the next publish reopens the path.
		_ = s.file.Close()
		s.file = nil
		return errors.Wrapf(err, "append alert for %s", alert.SourceAddress)
	}
	return nil
}

func (s *FileSink) Path() string {
	return s.path
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

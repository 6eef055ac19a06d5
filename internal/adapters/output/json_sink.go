package output

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

// JSONSink writes alerts as JSON lines to a file or stdout. It is an audit
// log alongside the plain alert feed and carries the attempt count,
// threshold and triggering message.
type JSONSink struct {
	bufWriter *bufio.Writer
	file      *os.File
	mu        sync.Mutex
}

type JSONSinkConfig struct {
	FilePath string // Output file path (empty for discard)
	Stdout   bool   // Write to stdout
}

func NewJSONSink(config JSONSinkConfig) (*JSONSink, error) {
	var writer io.Writer
	var file *os.File

	switch {
	case config.Stdout:
		writer = os.Stdout
	case config.FilePath != "":
		var err error
		file, err = os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, errors.Wrapf(err, "open json alert log %s", config.FilePath)
		}
		writer = file
	default:
		writer = io.Discard
	}

	bufWriter := bufio.NewWriter(writer)
	return &JSONSink{
		bufWriter: bufWriter,
		file:      file,
	}, nil
}

// Publish encodes and flushes one alert; alerts are rare enough that
// buffering across publishes buys nothing.
func (s *JSONSink) Publish(ctx context.Context, alert *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := alert.ToJSON()
	if err != nil {
		return errors.Wrap(err, "encode alert")
	}
	if _, err := s.bufWriter.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "write alert")
	}
	return s.bufWriter.Flush()
}

func (s *JSONSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bufWriter.Flush(); err != nil {
		return err
	}
	if s.file != nil {
		if err := s.file.Sync(); err != nil {
			return err
		}
		return s.file.Close()
	}
	return nil
}

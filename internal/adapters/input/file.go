package input

import (
	"context"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nxadm/tail"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/sshradar/internal/domain"
	"github.com/xoelrdgz/sshradar/internal/ports"
)

// FileSource follows a syslog-format auth log (e.g. /var/log/auth.log) from
// its current end. Rotated files are reopened.
type FileSource struct {
	filepath   string
	parser     ports.LineParser
	bufferSize int
	poll       bool

	mu   sync.Mutex
	tail *tail.Tail
	pump *pump
}

type FileSourceConfig struct {
	Path       string
	BufferSize int
	// Poll uses stat polling instead of inotify, for filesystems without
	// change notification.
	Poll bool
}

func NewFileSource(config FileSourceConfig, parser ports.LineParser) *FileSource {
	if parser == nil {
		parser = NewSyslogParser()
	}
	return &FileSource{
		filepath:   config.Path,
		parser:     parser,
		bufferSize: config.BufferSize,
		poll:       config.Poll,
	}
}

// SeekTail records the current end of the file and starts following from
// that offset. tail opens the file asynchronously, so the offset is taken
// here rather than left to io.SeekEnd; lines appended after SeekTail returns
// are delivered even if they land before tail's first read. A file that
// does not exist yet is followed from its start once it appears.
func (s *FileSource) SeekTail(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pump != nil {
		return nil
	}

	var offset int64
	info, err := os.Stat(s.filepath)
	switch {
	case err == nil:
		offset = info.Size()
	case !errors.Is(err, fs.ErrNotExist):
		return errors.Wrapf(err, "stat %s", s.filepath)
	}

	t, err := tail.TailFile(s.filepath, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      s.poll,
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return errors.Wrapf(err, "tail %s", s.filepath)
	}

	s.tail = t
	s.pump = newPump(s.bufferSize)
	go s.run(ctx, t, s.pump)

	log.Info().Str("file", s.filepath).Int64("offset", offset).Msg("Started tailing auth log")
	return nil
}

func (s *FileSource) run(ctx context.Context, t *tail.Tail, p *pump) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.closed():
			return
		case line, ok := <-t.Lines:
			if !ok {
				p.fail(errors.Wrapf(ErrSourceClosed, "tail of %s ended", s.filepath))
				return
			}
			if line.Err != nil {
				p.fail(errors.Wrapf(line.Err, "read %s", s.filepath))
				return
			}

			entry, err := s.parser.Parse(line.Text)
			if err != nil {
				continue
			}
			if entry.Timestamp.IsZero() {
				entry.Timestamp = time.Now()
			}
			if !p.deliver(ctx, entry) {
				return
			}
		}
	}
}

func (s *FileSource) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	p := s.current()
	if p == nil {
		return false, ErrNotPositioned
	}
	return p.wait(ctx, timeout)
}

func (s *FileSource) Next() (*domain.LogEntry, error) {
	p := s.current()
	if p == nil {
		return nil, ErrNotPositioned
	}
	return p.next()
}

func (s *FileSource) current() *pump {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pump
}

func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pump != nil {
		s.pump.shutdown()
	}
	if s.tail != nil {
		err := s.tail.Stop()
		s.tail.Cleanup()
		s.tail = nil
		return err
	}
	return nil
}

package input

import (
	"context"
	"sync"
	"time"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

// MemorySource is an appendable in-process log. Entries appended before
// SeekTail are history and are never delivered.
type MemorySource struct {
	mu         sync.Mutex
	entries    []*domain.LogEntry
	cursor     int
	appended   int
	positioned bool
	closed     bool
	failure    error
	notify     chan struct{}
	done       chan struct{}
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Append adds an entry to the end of the log and wakes a waiting consumer.
func (s *MemorySource) Append(entry *domain.LogEntry) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.entries = append(s.entries, entry)
	s.appended++
	s.mu.Unlock()
	s.signal()
}

// AppendMessage is Append for a message stamped with the current time.
func (s *MemorySource) AppendMessage(message string) {
	s.Append(domain.NewLogEntry(time.Now(), message))
}

// Fail makes the next Wait return err, simulating a broken stream.
func (s *MemorySource) Fail(err error) {
	s.mu.Lock()
	s.failure = err
	s.mu.Unlock()
	s.signal()
}

func (s *MemorySource) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *MemorySource) SeekTail(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSourceClosed
	}
	s.cursor = len(s.entries)
	s.positioned = true
	return nil
}

func (s *MemorySource) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = defaultIdleTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		ready, err := s.poll()
		if ready || err != nil {
			return ready, err
		}

		select {
		case <-s.notify:
		case <-s.done:
			return false, ErrSourceClosed
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
			return false, nil
		}
	}
}

func (s *MemorySource) poll() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return false, ErrSourceClosed
	case !s.positioned:
		return false, ErrNotPositioned
	case s.failure != nil:
		return false, s.failure
	}
	return s.cursor < len(s.entries), nil
}

func (s *MemorySource) Next() (*domain.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSourceClosed
	}
	if !s.positioned {
		return nil, ErrNotPositioned
	}
	if s.cursor >= len(s.entries) {
		return nil, nil
	}
	entry := s.entries[s.cursor]
	s.entries[s.cursor] = nil
	s.cursor++
	if s.cursor == len(s.entries) {
		s.entries = s.entries[:0]
		s.cursor = 0
	}
	return entry, nil
}

func (s *MemorySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

// Len returns the number of entries ever appended, delivered or not.
func (s *MemorySource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appended
}

package input

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

const maxJournalRecord = 1 << 20

// JournalSource reads the systemd journal through journalctl's JSON export.
// journalctl is started with --lines=0 so only entries written after
// SeekTail are delivered.
type JournalSource struct {
	command    string
	units      []string
	bufferSize int

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	pump   *pump
	waited chan struct{}
}

type JournalSourceConfig struct {
	// Command is the journalctl binary, default "journalctl".
	Command string
	// Units restricts the stream to these systemd units (e.g. "ssh.service").
	Units      []string
	BufferSize int
}

func NewJournalSource(config JournalSourceConfig) *JournalSource {
	if config.Command == "" {
		config.Command = "journalctl"
	}
	return &JournalSource{
		command:    config.Command,
		units:      config.Units,
		bufferSize: config.BufferSize,
	}
}

func (s *JournalSource) args() []string {
	args := []string{"--follow", "--lines=0", "--output=json", "--no-pager"}
	for _, u := range s.units {
		args = append(args, "--unit="+u)
	}
	return args
}

func (s *JournalSource) SeekTail(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pump != nil {
		return nil
	}

	cmdCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cmdCtx, s.command, s.args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return errors.Wrap(err, "journalctl stdout")
	}
	stderr := &limitedBuffer{max: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return errors.Wrapf(err, "start %s", s.command)
	}

	s.cmd = cmd
	s.cancel = cancel
	s.pump = newPump(s.bufferSize)
	s.waited = make(chan struct{})
	go s.run(cmdCtx, cmd, stdout, stderr, s.pump, s.waited)

	log.Info().Str("command", s.command).Strs("units", s.units).Msg("Started following systemd journal")
	return nil
}

func (s *JournalSource) run(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, stderr *limitedBuffer, p *pump, waited chan struct{}) {
	defer close(waited)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJournalRecord)

	for scanner.Scan() {
		entry, err := DecodeJournalRecord(scanner.Bytes())
		if err != nil {
			log.Debug().Err(err).Msg("Skipping undecodable journal record")
			continue
		}
		if !p.deliver(ctx, entry) {
			// Drain so journalctl is not blocked on a full pipe while exiting.
			_, _ = io.Copy(io.Discard, stdout)
			_ = cmd.Wait()
			return
		}
	}

	scanErr := scanner.Err()
	waitErr := cmd.Wait()

	select {
	case <-p.closed():
		return
	default:
	}
	if ctx.Err() != nil {
		return
	}

	switch {
	case scanErr != nil:
		p.fail(errors.Wrap(scanErr, "read journal stream"))
	case waitErr != nil:
		p.fail(errors.Wrapf(waitErr, "journalctl exited: %s", strings.TrimSpace(stderr.String())))
	default:
		p.fail(errors.Wrap(ErrSourceClosed, "journalctl exited"))
	}
}

func (s *JournalSource) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	p := s.current()
	if p == nil {
		return false, ErrNotPositioned
	}
	return p.wait(ctx, timeout)
}

func (s *JournalSource) Next() (*domain.LogEntry, error) {
	p := s.current()
	if p == nil {
		return nil, ErrNotPositioned
	}
	return p.next()
}

func (s *JournalSource) current() *pump {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pump
}

func (s *JournalSource) Close() error {
	s.mu.Lock()
	p, cancel, waited := s.pump, s.cancel, s.waited
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	p.shutdown()
	cancel()

	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		return errors.New("journalctl did not exit within 5s")
	}
	return nil
}

// journalRecord holds the export fields sshradar uses. MESSAGE is kept raw
// because journald emits binary payloads as an array of byte values.
type journalRecord struct {
	Message          json.RawMessage `json:"MESSAGE"`
	RealtimeUsec     string          `json:"__REALTIME_TIMESTAMP"`
	Hostname         string          `json:"_HOSTNAME"`
	SyslogIdentifier string          `json:"SYSLOG_IDENTIFIER"`
	Comm             string          `json:"_COMM"`
	PID              string          `json:"_PID"`
}

// DecodeJournalRecord converts one line of `journalctl --output=json`.
// A record without MESSAGE yields an entry with HasMessage false.
func DecodeJournalRecord(data []byte) (*domain.LogEntry, error) {
	var rec journalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "decode journal record")
	}

	entry := &domain.LogEntry{
		Hostname:   rec.Hostname,
		Identifier: rec.SyslogIdentifier,
	}
	if entry.Identifier == "" {
		entry.Identifier = rec.Comm
	}
	if pid, err := strconv.Atoi(rec.PID); err == nil {
		entry.PID = pid
	}
	if usec, err := strconv.ParseInt(rec.RealtimeUsec, 10, 64); err == nil {
		entry.Timestamp = time.UnixMicro(usec)
	} else {
		entry.Timestamp = time.Now()
	}

	msg, ok, err := decodeJournalMessage(rec.Message)
	if err != nil {
		return nil, err
	}
	if ok {
		entry.SetMessage(msg)
	}
	return entry, nil
}

func decodeJournalMessage(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, errors.Wrap(err, "decode MESSAGE")
		}
		return s, true, nil
	case '[':
		var values []int
		if err := json.Unmarshal(raw, &values); err != nil {
			return "", false, errors.Wrap(err, "decode binary MESSAGE")
		}
		buf := make([]byte, len(values))
		for i, v := range values {
			if v < 0 || v > 255 {
				return "", false, errors.Newf("binary MESSAGE byte %d out of range", v)
			}
			buf[i] = byte(v)
		}
		return string(buf), true, nil
	default:
		return "", false, errors.Newf("unexpected MESSAGE encoding %q", raw[0])
	}
}

// limitedBuffer keeps the first max bytes written to it.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

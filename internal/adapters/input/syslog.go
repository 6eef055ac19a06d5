package input

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

var ErrEmptyLine = errors.New("empty log line")

// SyslogParser parses auth-log lines as written by rsyslog/syslog-ng:
//
//	Oct 14 10:00:00 host sshd[812]: Failed password for ...
//	2026-10-14T10:00:00.123456+00:00 host sshd[812]: Failed password for ...
//
// A line whose header cannot be parsed is kept whole as the message, so the
// matcher still sees it.
type SyslogParser struct {
	now func() time.Time
}

func NewSyslogParser() *SyslogParser {
	return &SyslogParser{now: time.Now}
}

func (p *SyslogParser) Format() string {
	return "syslog"
}

func (p *SyslogParser) Parse(line string) (*domain.LogEntry, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, ErrEmptyLine
	}

	ts, rest, ok := p.parseTimestamp(line)
	if !ok {
		return domain.NewLogEntry(p.now(), line), nil
	}

	host, rest, ok := cutField(rest)
	if !ok {
		return domain.NewLogEntry(ts, line), nil
	}

	entry := &domain.LogEntry{Timestamp: ts, Hostname: host}

	tag, msg, found := strings.Cut(rest, ": ")
	if !found || strings.ContainsRune(tag, ' ') {
		entry.SetMessage(rest)
		return entry, nil
	}
	entry.Identifier, entry.PID = splitTag(tag)
	entry.SetMessage(msg)
	return entry, nil
}

func (p *SyslogParser) parseTimestamp(line string) (time.Time, string, bool) {
	// RFC 3164 stamps have a fixed width.
	if len(line) > len(time.Stamp) && line[len(time.Stamp)] == ' ' {
		if ts, err := time.ParseInLocation(time.Stamp, line[:len(time.Stamp)], time.Local); err == nil {
			return p.withYear(ts), line[len(time.Stamp)+1:], true
		}
	}

	field, rest, ok := cutField(line)
	if !ok {
		return time.Time{}, "", false
	}
	ts, err := time.Parse(time.RFC3339Nano, field)
	if err != nil {
		return time.Time{}, "", false
	}
	return ts, rest, true
}

// withYear fills in the year RFC 3164 omits. A stamp more than a day in the
// future belongs to the previous year (December lines read in January).
func (p *SyslogParser) withYear(ts time.Time) time.Time {
	now := p.now()
	ts = time.Date(now.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), 0, time.Local)
	if ts.After(now.Add(24 * time.Hour)) {
		ts = ts.AddDate(-1, 0, 0)
	}
	return ts
}

func cutField(s string) (string, string, bool) {
	field, rest, found := strings.Cut(s, " ")
	if !found || field == "" {
		return "", "", false
	}
	return field, rest, true
}

// splitTag splits "sshd[812]" into ("sshd", 812).
func splitTag(tag string) (string, int) {
	open := strings.IndexByte(tag, '[')
	if open < 0 || !strings.HasSuffix(tag, "]") {
		return tag, 0
	}
	pid, err := strconv.Atoi(tag[open+1 : len(tag)-1])
	if err != nil {
		return tag, 0
	}
	return tag[:open], pid
}

package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyslogParser(t *testing.T) {
	now := time.Date(2026, time.October, 14, 12, 0, 0, 0, time.Local)
	parser := &SyslogParser{now: func() time.Time { return now }}

	tests := []struct {
		name       string
		line       string
		wantErr    bool
		wantHost   string
		wantIdent  string
		wantPID    int
		wantMsg    string
		wantTime   time.Time
		checkTime  bool
	}{
		{
			name:      "rfc3164 with pid",
			line:      "Oct 14 10:00:00 bastion sshd[812]: Failed password for root from 10.0.0.7 port 22 ssh2",
			wantHost:  "bastion",
			wantIdent: "sshd",
			wantPID:   812,
			wantMsg:   "Failed password for root from 10.0.0.7 port 22 ssh2",
			wantTime:  time.Date(2026, time.October, 14, 10, 0, 0, 0, time.Local),
			checkTime: true,
		},
		{
			name:      "rfc3164 single digit day",
			line:      "Oct  4 09:15:30 bastion sshd[9]: Connection closed by 10.0.0.1 port 4000 [preauth]",
			wantHost:  "bastion",
			wantIdent: "sshd",
			wantPID:   9,
			wantMsg:   "Connection closed by 10.0.0.1 port 4000 [preauth]",
			wantTime:  time.Date(2026, time.October, 4, 9, 15, 30, 0, time.Local),
			checkTime: true,
		},
		{
			name:      "december line read in january belongs to last year",
			line:      "Dec 31 23:59:59 bastion CRON[1]: job done",
			wantHost:  "bastion",
			wantIdent: "CRON",
			wantPID:   1,
			wantMsg:   "job done",
			checkTime: false,
		},
		{
			name:      "rfc3339 timestamp",
			line:      "2026-10-14T10:00:00.123456+00:00 web1 sshd[77]: Failed password for invalid user admin from 192.168.1.1 port 22 ssh2",
			wantHost:  "web1",
			wantIdent: "sshd",
			wantPID:   77,
			wantMsg:   "Failed password for invalid user admin from 192.168.1.1 port 22 ssh2",
			wantTime:  time.Date(2026, time.October, 14, 10, 0, 0, 123456000, time.UTC),
			checkTime: true,
		},
		{
			name:      "tag without pid",
			line:      "Oct 14 10:00:00 bastion kernel: eth0 link up",
			wantHost:  "bastion",
			wantIdent: "kernel",
			wantMsg:   "eth0 link up",
		},
		{
			name:     "no tag separator",
			line:     "Oct 14 10:00:00 bastion -- MARK --",
			wantHost: "bastion",
			wantMsg:  "-- MARK --",
		},
		{
			name:    "unparseable header keeps whole line",
			line:    "Failed password for root from 10.0.0.7 port 22 ssh2",
			wantMsg: "Failed password for root from 10.0.0.7 port 22 ssh2",
		},
		{
			name:    "empty line",
			line:    "",
			wantErr: true,
		},
		{
			name:    "whitespace line",
			line:    "   \r\n",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entry, err := parser.Parse(tc.line)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrEmptyLine)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, entry)
			assert.True(t, entry.HasMessage)
			assert.Equal(t, tc.wantHost, entry.Hostname)
			assert.Equal(t, tc.wantIdent, entry.Identifier)
			assert.Equal(t, tc.wantPID, entry.PID)
			assert.Equal(t, tc.wantMsg, entry.Message)
			if tc.checkTime {
				assert.True(t, tc.wantTime.Equal(entry.Timestamp), "got %v want %v", entry.Timestamp, tc.wantTime)
			}
		})
	}
}

func TestSyslogParser_YearRollover(t *testing.T) {
	now := time.Date(2027, time.January, 1, 0, 5, 0, 0, time.Local)
	parser := &SyslogParser{now: func() time.Time { return now }}

	entry, err := parser.Parse("Dec 31 23:59:59 bastion sshd[1]: Failed password for root from 10.0.0.7 port 22 ssh2")
	require.NoError(t, err)
	assert.Equal(t, 2026, entry.Timestamp.Year())
}

func TestSyslogParser_Format(t *testing.T) {
	assert.Equal(t, "syslog", NewSyslogParser().Format())
}

package input

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJournalRecord(t *testing.T) {
	line := `{"__CURSOR":"s=abc","__REALTIME_TIMESTAMP":"1700000000123456","_HOSTNAME":"bastion","SYSLOG_IDENTIFIER":"sshd","_PID":"812","MESSAGE":"Failed password for root from 10.0.0.7 port 22 ssh2"}`

	entry, err := DecodeJournalRecord([]byte(line))
	require.NoError(t, err)

	assert.True(t, entry.HasMessage)
	assert.Equal(t, "Failed password for root from 10.0.0.7 port 22 ssh2", entry.Message)
	assert.Equal(t, "bastion", entry.Hostname)
	assert.Equal(t, "sshd", entry.Identifier)
	assert.Equal(t, 812, entry.PID)
	assert.Equal(t, time.UnixMicro(1700000000123456), entry.Timestamp)
}

func TestDecodeJournalRecord_BinaryMessage(t *testing.T) {
	// "Failed" as byte values, as journald exports non-UTF-8 payloads.
	line := `{"MESSAGE":[70,97,105,108,101,100],"_COMM":"sshd"}`

	entry, err := DecodeJournalRecord([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, "Failed", entry.Message)
	assert.Equal(t, "sshd", entry.Identifier)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestDecodeJournalRecord_NoMessage(t *testing.T) {
	for _, line := range []string{
		`{"_HOSTNAME":"bastion"}`,
		`{"MESSAGE":null}`,
	} {
		entry, err := DecodeJournalRecord([]byte(line))
		require.NoError(t, err, line)
		assert.False(t, entry.HasMessage, line)
	}
}

func TestDecodeJournalRecord_Invalid(t *testing.T) {
	for _, line := range []string{
		`not json`,
		`{"MESSAGE":42}`,
		`{"MESSAGE":[300]}`,
	} {
		_, err := DecodeJournalRecord([]byte(line))
		assert.Error(t, err, line)
	}
}

func TestJournalSource_Args(t *testing.T) {
	s := NewJournalSource(JournalSourceConfig{Units: []string{"ssh.service", "sshd.service"}})
	assert.Equal(t, "journalctl", s.command)
	assert.Equal(t, []string{
		"--follow", "--lines=0", "--output=json", "--no-pager",
		"--unit=ssh.service", "--unit=sshd.service",
	}, s.args())
}

func writeFakeJournalctl(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "journalctl")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestJournalSource_StreamThenExit(t *testing.T) {
	cmd := writeFakeJournalctl(t, `echo '{"MESSAGE":"Failed password for root from 10.0.0.7 port 22 ssh2"}'
echo 'garbage'
echo '{"MESSAGE":"Accepted password for root from 10.0.0.8 port 22 ssh2"}'
echo 'boom' >&2
exit 3
`)
	src := NewJournalSource(JournalSourceConfig{Command: cmd})
	defer src.Close()

	ctx := context.Background()
	require.NoError(t, src.SeekTail(ctx))

	var messages []string
	var streamErr error
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ready, err := src.Wait(ctx, 100*time.Millisecond)
		if err != nil {
			streamErr = err
			break
		}
		if !ready {
			continue
		}
		entry, err := src.Next()
		require.NoError(t, err)
		messages = append(messages, entry.Message)
	}

	assert.Equal(t, []string{
		"Failed password for root from 10.0.0.7 port 22 ssh2",
		"Accepted password for root from 10.0.0.8 port 22 ssh2",
	}, messages)
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "boom")
}

func TestJournalSource_CloseStopsProcess(t *testing.T) {
	cmd := writeFakeJournalctl(t, "exec sleep 30\n")
	src := NewJournalSource(JournalSourceConfig{Command: cmd})

	ctx := context.Background()
	require.NoError(t, src.SeekTail(ctx))

	ready, err := src.Wait(ctx, 50*time.Millisecond)
	assert.False(t, ready)
	assert.NoError(t, err)

	require.NoError(t, src.Close())

	_, err = src.Wait(ctx, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrSourceClosed)
}

func TestJournalSource_NotPositioned(t *testing.T) {
	src := NewJournalSource(JournalSourceConfig{})
	_, err := src.Wait(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, ErrNotPositioned)
	_, err = src.Next()
	assert.ErrorIs(t, err, ErrNotPositioned)
	assert.NoError(t, src.Close())
}

func TestJournalSource_MissingBinary(t *testing.T) {
	src := NewJournalSource(JournalSourceConfig{Command: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, src.SeekTail(context.Background()))
}

package notifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

// waitForAddress drains notifications until one names addr.
func waitForAddress(t *testing.T, r *recordingRenderer, addr string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case n := <-r.ch:
			if n.Address == addr {
				return
			}
		case <-deadline:
			t.Fatalf("no notification for %s", addr)
		}
	}
}

func startWatcher(t *testing.T, path string, r Renderer) (cancel func() error) {
	t.Helper()
	w, err := NewWatcher(path, r)
	require.NoError(t, err)

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-w.Ready():
	case err := <-done:
		stop()
		t.Fatalf("watcher exited early: %v", err)
	case <-time.After(2 * time.Second):
		stop()
		t.Fatal("watcher never became ready")
	}

	return func() error {
		stop()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not stop")
			return nil
		}
	}
}

func TestWatcherRendersAppendedAlerts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	r := newRecordingRenderer()
	stop := startWatcher(t, path, r)

	appendLine(t, path, "10.0.0.7")
	waitForAddress(t, r, "10.0.0.7")

	appendLine(t, path, "10.0.0.9")
	waitForAddress(t, r, "10.0.0.9")

	assert.NoError(t, stop())
}

func TestWatcherWaitsForMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.log")

	r := newRecordingRenderer()
	stop := startWatcher(t, path, r)

	appendLine(t, path, "192.168.1.1")
	waitForAddress(t, r, "192.168.1.1")

	assert.NoError(t, stop())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alerts.log")

	r := newRecordingRenderer()
	stop := startWatcher(t, path, r)

	appendLine(t, filepath.Join(dir, "other.log"), "10.0.0.7")
	select {
	case n := <-r.ch:
		t.Fatalf("unexpected notification %+v", n)
	case <-time.After(200 * time.Millisecond):
	}

	assert.NoError(t, stop())
}

func TestWatcherMissingDirectory(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "alerts.log"), newRecordingRenderer())
	require.NoError(t, err)

	assert.Error(t, w.Run(context.Background()))
}

func TestNewWatcherEmptyPath(t *testing.T) {
	_, err := NewWatcher("", newRecordingRenderer())
	assert.Error(t, err)
}

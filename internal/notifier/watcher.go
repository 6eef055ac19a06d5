package notifier

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher renders a notification for the last line of the alert file every
// time the file is written or created. The parent directory is watched, not
// the file, so a feed that does not exist yet or is recreated is still seen.
type Watcher struct {
	path     string
	renderer Renderer
	ready    chan struct{}
}

func NewWatcher(path string, renderer Renderer) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("notifier: alert file path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	return &Watcher{
		path:     filepath.Clean(abs),
		renderer: renderer,
		ready:    make(chan struct{}),
	}, nil
}

func (w *Watcher) Path() string { return w.path }

// Ready is closed once the directory watch is installed.
func (w *Watcher) Ready() <-chan struct{} { return w.ready }

// Run blocks until ctx is cancelled, returning nil, or until the directory
// watch breaks.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create file watcher")
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}
	close(w.ready)

	log.Info().Str("file", w.path).Msg("Watching alert file")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Notifier stopped by request")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.handle(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			log.Warn().Err(err).Msg("File watcher error")
		}
	}
}

func (w *Watcher) handle(ctx context.Context) {
	line, err := LastLine(w.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("file", w.path).Msg("Alert file not found, waiting for it")
		return
	case errors.Is(err, ErrNoLine):
		return
	case err != nil:
		log.Error().Err(err).Str("file", w.path).Msg("Failed to read alert file")
		return
	}

	n := NewNotification(strings.TrimSpace(line))
	log.Debug().Str("ip", n.Address).Msg("Rendering notification")
	if err := w.renderer.Render(ctx, n); err != nil {
		log.Error().Err(err).Msg("Failed to render notification")
	}
}

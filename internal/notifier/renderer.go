package notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"

	"github.com/xoelrdgz/sshradar/pkg/sanitize"
)

// ConsoleRenderer prints a framed banner to a terminal.
type ConsoleRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleRenderer(out io.Writer) *ConsoleRenderer {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleRenderer{out: out}
}

func (r *ConsoleRenderer) Render(_ context.Context, n Notification) error {
	message := sanitize.Terminal(n.Message)
	if n.Address != "" {
		message = strings.Replace(message, n.Address, addressStyle.Render(n.Address), 1)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(sanitize.Terminal(n.Title)),
		messageStyle.Render(message),
		timeStyle.Render(n.At.Format(time.DateTime)),
	)

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintln(r.out, bannerStyle.Render(body))
	return err
}

// CommandRenderer hands the notification to an external program as
// `command [args...] title message`, e.g. notify-send. Arguments are passed
// directly, never through a shell.
type CommandRenderer struct {
	command string
	args    []string
	timeout time.Duration
}

func NewCommandRenderer(command string, args ...string) *CommandRenderer {
	return &CommandRenderer{command: command, args: args, timeout: 10 * time.Second}
}

// ParseCommand splits a configured command line on whitespace.
func ParseCommand(line string) (*CommandRenderer, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("empty notifier command")
	}
	return NewCommandRenderer(fields[0], fields[1:]...), nil
}

func (r *CommandRenderer) Render(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, r.args...), n.Title, n.Message)
	cmd := exec.CommandContext(ctx, r.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return errors.Wrapf(err, "%s: %s", r.command, msg)
		}
		return errors.Wrap(err, r.command)
	}
	return nil
}

// MultiRenderer renders to every renderer, returning the combined failures.
type MultiRenderer []Renderer

func (m MultiRenderer) Render(ctx context.Context, n Notification) error {
	var errs error
	for _, r := range m {
		if err := r.Render(ctx, n); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

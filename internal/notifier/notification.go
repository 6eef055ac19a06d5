// Package notifier is the consumer side of the alert feed. It watches the
// file the detector appends to and turns each new line into a user-facing
// notification. It shares nothing with the detector but the file.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/xoelrdgz/sshradar/pkg/sanitize"
)

const (
	Title = "Brute-Force Attack Detected"

	maxAddressLength = 64
)

type Notification struct {
	Title   string
	Message string
	Address string
	At      time.Time
}

// NewNotification builds the notification for an address read from the
// alert feed. The address is sanitized since the feed is world-readable.
func NewNotification(address string) Notification {
	addr := sanitize.Line(address, maxAddressLength)
	return Notification{
		Title:   Title,
		Message: fmt.Sprintf("Potential brute-force attack from IP: %s.", addr),
		Address: addr,
		At:      time.Now(),
	}
}

// Renderer shows a notification to the user.
type Renderer interface {
	Render(ctx context.Context, n Notification) error
}

package domain

import (
	"strings"
	"time"
)

// SourceAddress is the dotted-quad origin of an authentication attempt.
type SourceAddress string

func (a SourceAddress) String() string {
	return string(a)
}

// LogEntry is one event delivered by an event source. Only Message matters for
// detection; the remaining fields are kept for logging and alert context.
type LogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Hostname   string    `json:"hostname,omitempty"`
	Identifier string    `json:"identifier,omitempty"`
	PID        int       `json:"pid,omitempty"`
	Message    string    `json:"message,omitempty"`
	HasMessage bool      `json:"has_message"`
}

// NewLogEntry builds an entry carrying a message.
func NewLogEntry(ts time.Time, message string) *LogEntry {
	e := &LogEntry{Timestamp: ts}
	e.SetMessage(message)
	return e
}

// SetMessage stores message uncut; sources bound the record size.
func (e *LogEntry) SetMessage(message string) {
	e.Message = strings.Clone(message)
	e.HasMessage = true
}

// Text returns the message and whether the entry had one at all.
func (e *LogEntry) Text() (string, bool) {
	if e == nil || !e.HasMessage {
		return "", false
	}
	return e.Message, true
}

package domain

import (
	crypto_rand "crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// MaxRawMessageLength bounds the copy of the triggering message an alert
// carries for context.
const MaxRawMessageLength = 8192

// Alert records that one address just crossed the attempt threshold.
// Alerts are never mutated after publication.
type Alert struct {
	ID            string        `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	SourceAddress SourceAddress `json:"source_address"`
	Attempts      int           `json:"attempts"`
	Threshold     int           `json:"threshold"`
	Hostname      string        `json:"hostname,omitempty"`
	RawMessage    string        `json:"raw_message,omitempty"`
	RawTruncated  bool          `json:"raw_truncated,omitempty"`
}

func NewAlert(addr SourceAddress, attempts, threshold int, entry *LogEntry) *Alert {
	a := &Alert{
		ID:            generateAlertID(),
		Timestamp:     time.Now().UTC(),
		SourceAddress: addr,
		Attempts:      attempts,
		Threshold:     threshold,
	}
	if entry != nil {
		a.Hostname = entry.Hostname
		a.RawMessage, a.RawTruncated = excerpt(entry.Message, MaxRawMessageLength)
	}
	return a
}

// Line is the alert-file representation: the literal address and a newline.
func (a *Alert) Line() []byte {
	line := make([]byte, 0, len(a.SourceAddress)+1)
	line = append(line, a.SourceAddress...)
	return append(line, '\n')
}

func (a *Alert) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

// excerpt cuts s to at most n bytes on a rune boundary.
func excerpt(s string, n int) (string, bool) {
	if len(s) <= n {
		return s, false
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n], true
}

var alertCounter atomic.Uint64

func generateAlertID() string {
	var randBytes [4]byte
	if _, err := crypto_rand.Read(randBytes[:]); err != nil {
		return fmt.Sprintf("%s-%d-00000000",
			time.Now().UTC().Format("20060102150405"),
			alertCounter.Add(1))
	}
	return fmt.Sprintf("%s-%d-%08x",
		time.Now().UTC().Format("20060102150405"),
		alertCounter.Add(1),
		binary.BigEndian.Uint32(randBytes[:]))
}

package detection

import "github.com/xoelrdgz/sshradar/internal/domain"

// AttemptCounter tallies failed attempts per source address.
//
// Entries are never evicted: memory grows with the number of distinct
// addresses seen during the process lifetime. A bounded variant would need a
// time-windowed or capacity-bounded policy on top of this type.
//
// Thread Safety: NOT thread-safe. The detection engine is its only writer
// and reader.
type AttemptCounter struct {
	counts map[domain.SourceAddress]int
}

func NewAttemptCounter() *AttemptCounter {
	return &AttemptCounter{
		counts: make(map[domain.SourceAddress]int),
	}
}

// Record increments the tally for addr and returns the new value.
func (c *AttemptCounter) Record(addr domain.SourceAddress) int {
	c.counts[addr]++
	return c.counts[addr]
}

// ThresholdReached reports whether addr's tally is at or above threshold.
func (c *AttemptCounter) ThresholdReached(addr domain.SourceAddress, threshold int) bool {
	return c.counts[addr] >= threshold
}

// Reset sets addr's tally back to zero. The address stays tracked.
func (c *AttemptCounter) Reset(addr domain.SourceAddress) {
	c.counts[addr] = 0
}

// Count returns the current tally for addr (0 if never seen).
func (c *AttemptCounter) Count(addr domain.SourceAddress) int {
	return c.counts[addr]
}

// Len returns the number of distinct addresses ever recorded.
func (c *AttemptCounter) Len() int {
	return len(c.counts)
}

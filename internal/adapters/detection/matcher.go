// Package detection implements failed-login recognition and per-address
// attempt counting for sshradar.
package detection

import (
	"regexp"
	"strings"

	"github.com/xoelrdgz/sshradar/internal/domain"
)

// failedPasswordPrefix is checked before running the regex; most journal
// traffic is not sshd auth failures.
const failedPasswordPrefix = "Failed password for "

// failedPasswordPattern captures the dotted quad after "from". Octet ranges
// are not validated.
var failedPasswordPattern = regexp.MustCompile(`Failed password for .*? from (\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)

// FailedPasswordMatcher recognizes OpenSSH "Failed password" messages.
type FailedPasswordMatcher struct {
	pattern *regexp.Regexp
}

func NewFailedPasswordMatcher() *FailedPasswordMatcher {
	return &FailedPasswordMatcher{pattern: failedPasswordPattern}
}

// Match returns the source address of a failed password attempt.
// Both "Failed password for root from ..." and
// "Failed password for invalid user admin from ..." are recognized.
func (m *FailedPasswordMatcher) Match(message string) (domain.SourceAddress, bool) {
	if !strings.Contains(message, failedPasswordPrefix) {
		return "", false
	}
	sub := m.pattern.FindStringSubmatch(message)
	if len(sub) < 2 {
		return "", false
	}
	return domain.SourceAddress(sub[1]), true
}

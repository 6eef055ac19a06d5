package ports

import "github.com/xoelrdgz/sshradar/internal/domain"

// AttemptMatcher recognizes failed authentication messages.
// Implementations must be pure: same input, same result, no side effects.
type AttemptMatcher interface {
	Match(message string) (domain.SourceAddress, bool)
}

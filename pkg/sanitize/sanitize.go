// Package sanitize makes untrusted text safe to print on a terminal.
//
// Anything read back from the alert feed is attacker-influenced, so it is
// passed through Terminal before it reaches a notification banner.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

const DefaultMaxLength = 256

// Terminal replaces escape sequences and control characters with visible
// placeholders. CSI (ESC [ ... final) and OSC (ESC ] ... BEL|ST) sequences
// are consumed whole; tab and newline become spaces; invalid UTF-8 becomes
// U+FFFD.
func Terminal(s string) string {
	if safe(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		c := s[i]
		if c == 0x1B {
			i = skipEscape(s, i)
			b.WriteString("[ESC]")
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteRune(utf8.RuneError)
		case r == '\t' || r == '\n':
			b.WriteByte(' ')
		case r == '\r':
			b.WriteString("[CR]")
		case r == 0x7F:
			b.WriteString("[DEL]")
		case r < 0x20 || (r >= 0x80 && r <= 0x9F):
			b.WriteString("[CTRL]")
		default:
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// Line sanitizes s and cuts it to at most maxLen bytes on a rune boundary,
// marking the cut with "...". maxLen <= 0 means DefaultMaxLength.
func Line(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	out := Terminal(s)
	if len(out) <= maxLen {
		return out
	}
	if maxLen <= 3 {
		return out[:runeBoundary(out, maxLen)]
	}
	return out[:runeBoundary(out, maxLen-3)] + "..."
}

// safe reports whether s is valid UTF-8 free of C0 and C1 controls.
func safe(s string) bool {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if (r == utf8.RuneError && size == 1) || r < 0x20 || (r >= 0x7F && r <= 0x9F) {
			return false
		}
		i += size
	}
	return true
}

func skipEscape(s string, i int) int {
	i++
	if i >= len(s) {
		return i
	}
	switch s[i] {
	case '[':
		i++
		for i < len(s) && !(s[i] >= 0x40 && s[i] <= 0x7E) {
			i++
		}
		if i < len(s) {
			i++
		}
	case ']':
		i++
		for i < len(s) {
			if s[i] == 0x07 {
				return i + 1
			}
			if s[i] == 0x1B && i+1 < len(s) && s[i+1] == '\\' {
				return i + 2
			}
			i++
		}
	}
	return i
}

func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

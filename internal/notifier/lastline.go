package notifier

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

var ErrNoLine = errors.New("alert file has no lines")

const (
	readChunk     = 4096
	maxLineLength = 64 * 1024
)

// LastLine returns the last non-blank line of the file at path without its
// terminator. The file is read backwards from EOF so its size does not
// matter. A line longer than 64KiB is cut to its last 64KiB.
func LastLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrap(err, "stat alert file")
	}

	var tail []byte
	end := info.Size()
	for end > 0 && len(tail) < maxLineLength {
		start := end - readChunk
		if start < 0 {
			start = 0
		}
		buf := make([]byte, end-start)
		if _, err := f.ReadAt(buf, start); err != nil && !errors.Is(err, io.EOF) {
			return "", errors.Wrap(err, "read alert file")
		}
		tail = append(buf, tail...)

		trimmed := bytes.TrimRight(tail, "\r\n\t ")
		if i := bytes.LastIndexByte(trimmed, '\n'); i >= 0 {
			return string(bytes.TrimRight(trimmed[i+1:], "\r")), nil
		}
		end = start
	}

	trimmed := bytes.TrimRight(tail, "\r\n\t ")
	if len(trimmed) == 0 {
		return "", ErrNoLine
	}
	if len(trimmed) > maxLineLength {
		trimmed = trimmed[len(trimmed)-maxLineLength:]
	}
	return string(trimmed), nil
}

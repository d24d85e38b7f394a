package io

import (
	"bufio"
	"bytes"
	s "strings"
	"unicode"

	"github.com/pkg/errors"
)

// DefaultMaxLineBytes bounds how much a single line can buffer before the reader gives up on it.
const DefaultMaxLineBytes = 1 << 20

// ErrLineTooLong is returned by a LineReader when a line exceeds its limit.
var ErrLineTooLong = errors.New("line too long")

// LineReader splits a connection into newline terminated lines.
type LineReader struct {
	r   *bufio.Reader
	max int
}

// NewLineReader returns a LineReader over `r` that accepts lines of at most `max` bytes (newline included).
// A non positive `max` means DefaultMaxLineBytes.
func NewLineReader(r *bufio.Reader, max int) *LineReader {
	if max <= 0 {
		max = DefaultMaxLineBytes
	}
	return &LineReader{r: r, max: max}
}

// ReadLine blocks until a whole line is available and returns it without the newline and surrounding whitespace.
// Bytes are returned as they are, whatever their encoding.
//
// A partial line at the end of the stream is discarded and the underlying error (usually io.EOF) returned.
func (lr *LineReader) ReadLine() (string, error) {
	var buf bytes.Buffer
	for {
		chunk, err := lr.r.ReadSlice('\n')
		if buf.Len()+len(chunk) > lr.max {
			return "", errors.Wrapf(ErrLineTooLong, "more than %d bytes", lr.max)
		}
		buf.Write(chunk)
		switch err {
		case nil:
			return s.TrimFunc(buf.String(), isSpace), nil
		case bufio.ErrBufferFull:
			// keep reading the same line
		default:
			return "", err
		}
	}
}

// isSpace is unicode.IsSpace plus the ASCII separators 0x1c to 0x1f.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

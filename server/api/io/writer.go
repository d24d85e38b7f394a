package io

import (
	"bufio"
	"bytes"
)

// BufferWriter collects replies in memory, mostly useful for tests.
type BufferWriter struct {
	b *bytes.Buffer
	w *bufio.Writer
	// number of calls to Write
	Writes int
}

// NewBufferWriter returns an empty BufferWriter.
func NewBufferWriter() *BufferWriter {
	var b bytes.Buffer
	return &BufferWriter{b: &b, w: bufio.NewWriter(&b)}
}

func (bw *BufferWriter) Write(p []byte) (nn int, err error) {
	bw.Writes++
	return bw.w.Write(p)
}

func (bw *BufferWriter) String() string {
	bw.w.Flush()
	return bw.b.String()
}

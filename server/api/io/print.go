package io

import (
	"io"
	"strings"
)

// Reply writes `msg` to `w` in a single write, joining several messages with newlines.
// If the first message is empty nothing is written at all.
func Reply(w io.Writer, msg ...string) error {
	if len(msg) == 0 || msg[0] == "" {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(msg, "\n"))
	return err
}

// ReplyNL is like Reply, but terminates the output with a newline.
func ReplyNL(w io.Writer, msg ...string) error {
	if len(msg) == 0 || msg[0] == "" {
		return nil
	}
	return Reply(w, strings.Join(msg, "\n")+"\n")
}

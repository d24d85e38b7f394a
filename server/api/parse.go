package api

import (
	"fmt"
	"regexp"
)

// a command word is made of letters, digits, underscores and hyphens (in any script)
var (
	paramsCommand = regexp.MustCompile(`^([\p{L}\p{N}_-]+) (.*)$`)
	singleCommand = regexp.MustCompile(`^([\p{L}\p{N}_-]+)$`)
)

// Kind tells apart the commands the control socket understands.
type Kind int

const (
	// Invalid lines don't look like a command at all (eg. empty, or starting with a space or a symbol)
	Invalid Kind = iota
	// NotFound lines look like a command, but the verb is unknown
	NotFound
	// Hello sets the welcome name
	Hello
	// Quit ends the session
	Quit
)

func (k Kind) String() string {
	switch k {
	case Hello:
		return "hello"
	case Quit:
		return "quit"
	case NotFound:
		return "not_found"
	default:
		return "invalid"
	}
}

// Command is the result of parsing a single line.
type Command struct {
	Kind Kind
	// the whole line, as it was parsed
	Raw  string
	Verb string
	// for Hello, the new name
	Params    string
	HasParams bool
}

// Parse reads a line already stripped of its newline and surrounding whitespace.
//
// `<word> <params>` is checked first, then `<word>` alone; lines matching none are Invalid.
// Everything after the first space is taken verbatim as params, including further spaces.
func Parse(line string) Command {
	if m := paramsCommand.FindStringSubmatch(line); m != nil {
		cmd := Command{Kind: NotFound, Raw: line, Verb: m[1], Params: m[2], HasParams: true}
		if cmd.Verb == "hello" {
			cmd.Kind = Hello
		}
		return cmd
	}
	if m := singleCommand.FindStringSubmatch(line); m != nil {
		cmd := Command{Kind: NotFound, Raw: line, Verb: m[1]}
		if cmd.Verb == "quit" {
			cmd.Kind = Quit
		}
		return cmd
	}
	return Command{Kind: Invalid, Raw: line}
}

// Diagnostic returns the message an operator gets back for a line that couldn't be evaluated,
// or an empty string for valid commands.
func (cmd Command) Diagnostic() string {
	switch {
	case cmd.Kind == NotFound && cmd.HasParams:
		return fmt.Sprintf("command '%s' with params '%s' not found", cmd.Verb, cmd.Params)
	case cmd.Kind == NotFound:
		return fmt.Sprintf("command '%s' not found", cmd.Verb)
	case cmd.Kind == Invalid:
		return fmt.Sprintf("invalid input: '%s'", cmd.Raw)
	}
	return ""
}

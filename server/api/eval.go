package api

// Goodbye is the last thing written to a connection before closing it.
const Goodbye = "Goodbye!"

// Result describes the outcome of evaluating a command.
type Result struct {
	// to be written back to the operator, without the trailing newline; empty means nothing to write
	Reply string
	// whether the connection must be closed once Reply is written
	Close bool
	// set by hello commands
	Changed  bool
	Previous string
}

// Eval applies `cmd` to `state`.
// Only Hello modifies the state; Quit asks the caller to terminate the session; anything else yields a diagnostic.
func Eval(cmd Command, state State) Result {
	switch cmd.Kind {
	case Hello:
		return Result{Changed: true, Previous: state.SetName(cmd.Params)}
	case Quit:
		return Result{Reply: Goodbye, Close: true}
	default:
		return Result{Reply: cmd.Diagnostic()}
	}
}

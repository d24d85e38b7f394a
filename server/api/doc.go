package api

/*
Package `api` provides the read and eval parts of the control socket protocol.

`Parse` turns one line entered by an operator into a `Command`. The grammar is deliberately tiny: a word followed by
a single space and arbitrary parameters, or a word on its own. Only `hello <name>` and `quit` are understood, anything
else is reported back to the operator, with a different message depending on whether the line looked like a command
or not.

`Eval` applies a command to the welcome name and tells the caller what to reply and whether the connection is over.
There isn't any hidden control flow: `quit` is just a `Result` with `Close` set.

Functions in this package do never hold state of their own, instead this package exposes a `State` interface that
must be implemented and managed externally (see package `state`).

Reading lines off the network and writing replies back is done by the `io` subpackage.
*/

package server

/*
Package `server` implements the control socket: a tcp server that lets operators change the welcome name with a
line based protocol. Connections are served concurrently, each from its own goroutine, and all of them share the same
welcome name.

Every line read from a connection is parsed and evaluated by the `api` package, the reply (if any) is written back
followed by a newline. Lines are `hello <name>` to change the name and `quit` to close the connection; anything else
gets a diagnostic back and the connection stays open.

`client.Connection` wraps each tcp connection and takes care of the read loop, timeouts and the shutdown sequence.

The control socket has no authentication whatsoever, don't expose it to untrusted networks.
*/

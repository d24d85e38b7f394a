package client

/*
Package `client` serves a single control connection.

`client.Connection` wraps a tcp connection and defines the client-server communication minutiae (client-server is an
implementation abstraction, all the code is executed in the server): lines are read one at a time, evaluated against
the shared state and replied to in order. A `quit` command shuts down both halves of the socket after the goodbye
message is written, so peers always read the whole reply before the end of the stream.
*/

package state

/*
Package `state` owns the only piece of mutable data shared across the process: the welcome name.

Control connections write it with `SetName`, the web server reads it with `Name`. Both go through a
`sync.RWMutex` held only for the in-memory read or assignment, never across network I/O, so readers never see a
partially written name and a slow client can't stall anybody else.

When two connections change the name at the same time, the last write wins.
*/

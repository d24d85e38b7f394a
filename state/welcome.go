package state

import (
	"sync"
)

// DefaultName is the welcome name a process starts with.
const DefaultName = "World"

// Welcome holds the process-wide welcome name.
// It is created once in main and handed to both the control socket and the web server;
// callers never take the lock directly.
type Welcome struct {
	mu   sync.RWMutex // guards over name
	name string
}

// New returns a Welcome initialized with `name`, or with DefaultName if `name` is empty.
func New(name string) *Welcome {
	if name == "" {
		name = DefaultName
	}
	return &Welcome{name: name}
}

// Name returns the current welcome name.
func (w *Welcome) Name() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.name
}

// SetName replaces the welcome name and returns the one it replaced.
// No validation is done: empty names and arbitrary bytes are accepted as they are.
func (w *Welcome) SetName(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	previous := w.name
	w.name = name
	return previous
}

package api

import "sync"

// MockState records every name it has been set to.
type MockState struct {
	mu    sync.Mutex
	N     string
	Names []string
}

func (s *MockState) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.N
}

func (s *MockState) SetName(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.N
	s.N = name
	s.Names = append(s.Names, name)
	return previous
}

// History returns a copy of all the names set so far, oldest first.
func (s *MockState) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Names...)
}

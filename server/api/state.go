package api

// State is what commands read and modify.
type State interface {
	Name() string
	// SetName replaces the current name and returns the previous one
	SetName(string) string
}

package interfaces

import "time"

// Clock abstracts the wall-clock source so tests can control the
// last-checked timestamps stamped by the registry.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface
type ClockFunc func() time.Time

// Now implements Clock
func (f ClockFunc) Now() time.Time {
	return f()
}

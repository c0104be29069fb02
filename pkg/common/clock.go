package common

import "time"

// Clock abstracts time for the polling loops so tests can drive cycles
// with a fake clock instead of sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// NewClock returns the wall clock.
func NewClock() Clock {
	return realClock{}
}

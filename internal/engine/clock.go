package engine

import "time"

// Clock abstracts the wall-clock source. Every duration in the engine is
// derived from absolute timestamps taken from a Clock, never from
// accumulated ticks, so suspended tabs and reloads cannot over-credit time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

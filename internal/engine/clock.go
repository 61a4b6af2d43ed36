package engine

import "time"

// Clock abstracts timer creation so tests can drive the debounce window
// deterministically instead of sleeping.
type Clock interface {
	// AfterFunc schedules fn to run after d, from an arbitrary goroutine.
	AfterFunc(d time.Duration, fn func()) Timer

	// Now returns the current time. Reducer actions are stamped with it.
	Now() time.Time
}

// Timer is a cancellable pending callback.
type Timer interface {
	// Stop cancels the timer. Reports whether the call prevented the
	// callback from firing.
	Stop() bool
}

// realClock is the production Clock backed by the time package.
type realClock struct{}

// NewClock returns the wall clock.
func NewClock() Clock { return realClock{} }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }

func (realClock) Now() time.Time { return time.Now() }

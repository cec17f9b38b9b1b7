// Package clock is the timing boundary shared by the debounce and throttle
// primitives. Production code uses Real; tests drive a Manual clock so timer
// behaviour can be asserted without sleeping.
package clock

import "time"

// Timer is a handle to a scheduled callback.
// Stop reports whether the call was cancelled before it fired.
type Timer interface {
	Stop() bool
}

// Scheduler schedules callbacks after a delay and reports the current time.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the wall-clock Scheduler backed by the runtime timer heap.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// AfterFunc runs f on its own goroutine once d has elapsed.
// A zero or negative d still runs f asynchronously.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

var _ Scheduler = Real{}

// Package clock abstracts the timers used by the job lifecycle so tests can
// drive synthetic progress and delayed retrieval deterministically.
package clock

import "time"

// Clock is the subset of the time package the job lifecycle needs.
// Production code injects Real(); tests inject NewFake().
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTicker returns a Ticker delivering ticks every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker

	// AfterFunc calls f after d elapses. The returned Timer can cancel it.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Ticker delivers ticks on C, which has capacity 1; a slow consumer drops ticks.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. It does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Timer is a pending AfterFunc call.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the call if it has not run yet. Returns true if it was pending.
func (t *Timer) Stop() bool { return t.stopFunc() }

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stopFunc: t.Stop}
}

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stopFunc: t.Stop}
}

// Package sched provides the single-owner event loop that all UI and session
// state is mutated on.
package sched

import "time"

// Timer is a pending delayed task.
type Timer interface {
	// Stop prevents the task from running. It reports whether the call
	// stopped the task before it started.
	Stop() bool
}

// Scheduler runs tasks serially on one logical thread.
type Scheduler interface {
	// Post queues fn behind already queued tasks.
	Post(fn func())
	// AfterFunc runs fn on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Go runs blocking work off the loop. Results come back through Post.
	Go(fn func())
	// Now reports the scheduler clock.
	Now() time.Time
}

// Stop stops t when it is non-nil and returns nil, so callers can write
// `h = sched.Stop(h)` when clearing a stored handle.
func Stop(t Timer) Timer {
	if t != nil {
		t.Stop()
	}
	return nil
}

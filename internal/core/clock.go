package core

import "time"

// Clock is the interface that defines a method to get the current time.
type Clock interface {
	Now() time.Time
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop reports whether the call stopped the timer before it fired.
	Stop() bool
}

// Scheduler runs f once after d on its own goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock is the wall clock backed by package time.
func SystemClock() systemClock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

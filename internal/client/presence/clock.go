package presence

import "time"

// Timer is the subset of *time.Timer used here.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so expiry and debounce can be driven by tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock is backed by the time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

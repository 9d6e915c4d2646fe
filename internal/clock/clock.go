// Package clock abstracts the monotonic clock and fixed-duration waits so the
// device loop can be driven deterministically in tests.
package clock

import "time"

// Clock provides the time operations used by the device loop.
type Clock interface {
	// Now returns the current time. Real clocks carry a monotonic reading.
	Now() time.Time

	// Sleep blocks the caller for d.
	Sleep(d time.Duration)

	// SleepUntil blocks the caller until t. Returns immediately if t has passed.
	SleepUntil(t time.Time)

	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
}

// Real is a Clock backed by the time package.
type Real struct{}

// NewReal returns the system clock.
func NewReal() Real {
	return Real{}
}

func (Real) Now() time.Time { return time.Now() }

func (Real) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func (r Real) SleepUntil(t time.Time) {
	r.Sleep(time.Until(t))
}

func (Real) Since(t time.Time) time.Duration { return time.Since(t) }

// Package clock provides the monotonic time abstraction shared by the event
// loop's deadline arithmetic and the timer heap.
package clock

import (
	"math"
	"time"
)

// Time is a monotonic instant, measured in nanoseconds since an unspecified
// epoch fixed at process start. It is comparable and safe to use as a map
// key or heap element, unlike time.Time's wall-clock variants.
type Time int64

// maxDuration is the largest representable duration; Sub saturates to it
// (or its negation) instead of overflowing.
const maxDuration = time.Duration(math.MaxInt64)

var processStart = time.Now()

// Now returns the current monotonic time relative to processStart.
func Now() Time {
	return Time(time.Since(processStart))
}

// Add returns t+d, saturating at the representable maximum instead of
// wrapping around on overflow.
func (t Time) Add(d time.Duration) Time {
	if d > 0 && int64(t) > math.MaxInt64-int64(d) {
		return Time(math.MaxInt64)
	}

	if d < 0 && int64(t) < math.MinInt64-int64(d) {
		return Time(math.MinInt64)
	}

	return t + Time(d)
}

// Sub returns the duration t-u, saturating instead of overflowing when the
// two instants are implausibly far apart.
func (t Time) Sub(u Time) time.Duration {
	diff := int64(t) - int64(u)

	if t > u && diff < 0 {
		return maxDuration
	}

	if t < u && diff > 0 {
		return -maxDuration
	}

	return time.Duration(diff)
}

// Before reports whether t occurs before u.
func (t Time) Before(u Time) bool { return t < u }

// After reports whether t occurs after u.
func (t Time) After(u Time) bool { return t > u }

// IsZero reports whether t is the zero Time.
func (t Time) IsZero() bool { return t == 0 }

// Duration returns t as a time.Duration since processStart, mainly for
// logging and tests.
func (t Time) Duration() time.Duration { return time.Duration(t) }

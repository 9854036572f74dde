// Package clock does the time arithmetic for a two-sided game clock. It keeps
// no state: callers pass the remaining budget and the instant the running
// side started counting.
package clock

import "time"

// Elapsed returns the time since start, never negative. A wall clock that
// stepped backwards charges nothing.
func Elapsed(start, now time.Time) time.Duration {
	if now.Before(start) {
		return 0
	}
	return now.Sub(start)
}

// Charge deducts the time elapsed since start from remaining. The result is
// truncated to whole milliseconds, the resolution clocks are stored at, and
// clamped at zero; expired is true when the budget is exhausted.
func Charge(remaining time.Duration, start, now time.Time) (left time.Duration, expired bool) {
	left = (remaining - Elapsed(start, now)).Truncate(time.Millisecond)
	if left <= 0 {
		return 0, true
	}
	return left, false
}

// Deadline is the instant a budget of remaining, counting from now, runs out.
func Deadline(remaining time.Duration, now time.Time) time.Time {
	if remaining < 0 {
		remaining = 0
	}
	return now.Add(remaining)
}

package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCharge(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		remaining time.Duration
		now       time.Time
		left      time.Duration
		expired   bool
	}{
		{
			name:      "no time passed",
			remaining: time.Minute,
			now:       start,
			left:      time.Minute,
		},
		{
			name:      "one second passed",
			remaining: time.Minute,
			now:       start.Add(time.Second),
			left:      59 * time.Second,
		},
		{
			name:      "exactly exhausted",
			remaining: time.Minute,
			now:       start.Add(time.Minute),
			left:      0,
			expired:   true,
		},
		{
			name:      "overdrawn clamps to zero",
			remaining: time.Minute,
			now:       start.Add(61 * time.Second),
			left:      0,
			expired:   true,
		},
		{
			name:      "sub-millisecond remainder truncated",
			remaining: time.Minute,
			now:       start.Add(1500 * time.Microsecond),
			left:      59998 * time.Millisecond,
		},
		{
			name:      "less than a millisecond left",
			remaining: time.Second,
			now:       start.Add(999*time.Millisecond + 500*time.Microsecond),
			left:      0,
			expired:   true,
		},
		{
			name:      "clock stepped backwards",
			remaining: time.Minute,
			now:       start.Add(-time.Hour),
			left:      time.Minute,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			left, expired := Charge(tc.remaining, start, tc.now)
			assert.Equal(t, tc.left, left)
			assert.Equal(t, tc.expired, expired)
		})
	}
}

func TestDeadline(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(5*time.Second), Deadline(5*time.Second, now))
	assert.Equal(t, now, Deadline(-time.Second, now))
}

func TestElapsed(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 2*time.Second, Elapsed(now.Add(-2*time.Second), now))
	assert.Zero(t, Elapsed(now.Add(time.Second), now))
}

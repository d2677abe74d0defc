package engine

import "time"

// Clock supplies timestamps for created_at and updated_at.
//
// Timestamps take part in the total order and in snapshot fingerprints at
// millisecond resolution, so implementations should return times already
// truncated to the millisecond.
type Clock interface {
	Now() time.Time
}

// WallClock reads the system clock in UTC, truncated to milliseconds.
//
// Thread-safety: WallClock is stateless and safe for concurrent use.
type WallClock struct{}

// Now returns the current time.
func (WallClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time {
	return f()
}

// Package inter defines the small shared base types used across the
// crowdsale engine: timestamps and amount helpers.
//
// Timestamps are stored as nanoseconds since the Unix epoch in a plain
// uint64 so they can be compared, serialized and embedded in
// configuration values without dragging time.Time's location handling
// into the financial core.
package inter

import (
	"time"
)

// Timestamp is a point in time expressed as nanoseconds since the Unix
// epoch. The zero value means "unset" (e.g. a sale without a fixed end
// time).
type Timestamp uint64

// FromTime converts a time.Time into a Timestamp.
// Times before the epoch clamp to zero.
func FromTime(t time.Time) Timestamp {
	n := t.UnixNano()
	if n < 0 {
		return 0
	}
	return Timestamp(n)
}

// FromUnix converts seconds since the Unix epoch into a Timestamp.
func FromUnix(sec int64) Timestamp {
	if sec < 0 {
		return 0
	}
	return Timestamp(uint64(sec) * uint64(time.Second))
}

// Time converts the Timestamp back into a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t)).UTC()
}

// Unix returns the Timestamp as whole seconds since the Unix epoch.
func (t Timestamp) Unix() int64 {
	return int64(t) / int64(time.Second)
}

// IsZero reports whether the Timestamp is unset.
func (t Timestamp) IsZero() bool {
	return t == 0
}

// Add returns the Timestamp shifted forward by d.
func (t Timestamp) Add(d time.Duration) Timestamp {
	return t + Timestamp(d)
}

package models

import (
	"fmt"
	"time"
)

// Millis converts t to epoch milliseconds, the only time representation stored.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts epoch milliseconds to a time in loc.
func FromMillis(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}

// SecondsBetween returns whole seconds from start to end, floored, never negative.
func SecondsBetween(startMs, endMs int64) int64 {
	if endMs <= startMs {
		return 0
	}
	return (endMs - startMs) / 1000
}

// FormatDuration renders seconds as "9h 05m 03s", dropping leading zero units.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

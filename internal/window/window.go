// Package window decides whether check-in is open for an event.
package window

import "time"

// Grace is how far before the start and after the end check-in stays open.
const Grace = 2 * time.Hour

type Position int

const (
	Before Position = iota - 1
	Within
	After
)

func (p Position) String() string {
	switch p {
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "within"
	}
}

// Locate places now relative to [start-Grace, end+Grace]. Both bounds are
// inclusive.
func Locate(start, end, now time.Time) Position {
	switch {
	case now.Before(start.Add(-Grace)):
		return Before
	case now.After(end.Add(Grace)):
		return After
	default:
		return Within
	}
}

func IsWithinCheckInWindow(start, end, now time.Time) bool {
	return Locate(start, end, now) == Within
}

// Opens returns the first instant check-in is accepted.
func Opens(start time.Time) time.Time {
	return start.Add(-Grace)
}

// Closes returns the last instant check-in is accepted.
func Closes(end time.Time) time.Time {
	return end.Add(Grace)
}

package timesheet

import (
	"github.com/google/uuid"
)

// DateRange bounds are epoch milliseconds: From inclusive, To exclusive.
type DateRange struct {
	From int64
	To   int64
}

// SessionRow is one clock event as shown on a timesheet.
type SessionRow struct {
	ClockEventID    uuid.UUID
	Date            string // local YYYY-MM-DD of the start
	StartTime       int64
	EndTime         *int64
	Duration        *int64 // seconds; nil while the session is open
	TicketsWorkedOn []TicketWorked
}

// TicketWorked is one ticket's time inside a session.
type TicketWorked struct {
	TicketID        uuid.UUID
	Title           string
	URL             string
	DurationSeconds int64
}

// Totals is the floored sum of session lengths.
type Totals struct {
	Minutes int64
	Hours   float64
}

// EditRequest rewrites the boundaries of one clock event. At least one of
// the timestamps must be set.
type EditRequest struct {
	ClockEventID   uuid.UUID
	StartTimestamp *int64
	EndTimestamp   *int64
}

package models

import (
	"github.com/google/uuid"
)

// Ticket carries its own running total, independent of the clock events it
// was timed under.
type Ticket struct {
	ID              uuid.UUID  `json:"id"`
	TeamID          uuid.UUID  `json:"team_id"`
	Title           string     `json:"title"`
	AccumulatedTime int64      `json:"accumulated_time"`
	StartTimestamp  *int64     `json:"start_timestamp,omitempty"`
	RunningBy       *uuid.UUID `json:"running_by,omitempty"`
}

// IsRunning reports whether the ticket timer is running.
func (t *Ticket) IsRunning() bool {
	return t.StartTimestamp != nil
}

// Start marks the ticket as timed by userID. Starting a running ticket is a no-op.
func (t *Ticket) Start(userID uuid.UUID, nowMs int64) bool {
	if t.StartTimestamp != nil {
		return false
	}
	start := nowMs
	by := userID
	t.StartTimestamp = &start
	t.RunningBy = &by
	return true
}

// Stop folds elapsed time into AccumulatedTime. Stopping a stopped ticket is a no-op.
func (t *Ticket) Stop(nowMs int64) bool {
	if t.StartTimestamp == nil {
		return false
	}
	t.AccumulatedTime += SecondsBetween(*t.StartTimestamp, nowMs)
	t.StartTimestamp = nil
	t.RunningBy = nil
	return true
}

// Elapsed returns banked seconds plus the running segment, if any.
func (t *Ticket) Elapsed(nowMs int64) int64 {
	if t.StartTimestamp == nil {
		return t.AccumulatedTime
	}
	return t.AccumulatedTime + SecondsBetween(*t.StartTimestamp, nowMs)
}

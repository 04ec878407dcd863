package models

import (
	"github.com/google/uuid"
)

// ClockEvent is a team-level clock session for one user. Once EndTime is set the
// event is frozen and only admin boundary edits touch it again.
type ClockEvent struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	TeamID          uuid.UUID         `json:"team_id"`
	StartTimestamp  int64             `json:"start_timestamp"`
	EndTime         *int64            `json:"end_time"`
	AccumulatedTime int64             `json:"accumulated_time"`
	Tickets         []TicketTimeEntry `json:"tickets"`
	EditedAt        *int64            `json:"edited_at,omitempty"`
	EditedBy        *uuid.UUID        `json:"edited_by,omitempty"`
}

// TicketTimeEntry records a ticket's timer activity inside one ClockEvent.
type TicketTimeEntry struct {
	TicketID        uuid.UUID      `json:"ticket_id"`
	StartTimestamp  *int64         `json:"start_timestamp,omitempty"`
	AccumulatedTime int64          `json:"accumulated_time"`
	Sessions        []EntrySegment `json:"sessions"`
}

// EntrySegment is one start/stop interval of a TicketTimeEntry.
type EntrySegment struct {
	StartTimestamp int64  `json:"start_timestamp"`
	EndTimestamp   *int64 `json:"end_timestamp"`
}

// IsOpen reports whether the clock event has not been closed yet.
func (c *ClockEvent) IsOpen() bool {
	return c.EndTime == nil
}

// Elapsed returns banked seconds plus the running segment, if any.
func (c *ClockEvent) Elapsed(nowMs int64) int64 {
	if c.EndTime != nil {
		return c.AccumulatedTime
	}
	return c.AccumulatedTime + SecondsBetween(c.StartTimestamp, nowMs)
}

// Entry returns the entry for a ticket, or nil when the ticket was never timed here.
func (c *ClockEvent) Entry(ticketID uuid.UUID) *TicketTimeEntry {
	for i := range c.Tickets {
		if c.Tickets[i].TicketID == ticketID {
			return &c.Tickets[i]
		}
	}
	return nil
}

// AddEntry creates the entry for a ticket seeded with the ticket's banked time.
// The seed is also added to the clock event total. Returns the existing entry
// untouched if the pairing already exists.
func (c *ClockEvent) AddEntry(ticketID uuid.UUID, seed int64) *TicketTimeEntry {
	if e := c.Entry(ticketID); e != nil {
		return e
	}
	c.Tickets = append(c.Tickets, TicketTimeEntry{
		TicketID:        ticketID,
		AccumulatedTime: seed,
		Sessions:        []EntrySegment{},
	})
	c.AccumulatedTime += seed
	return &c.Tickets[len(c.Tickets)-1]
}

// RunningEntries returns the ticket IDs whose entries are still timing.
func (c *ClockEvent) RunningEntries() []uuid.UUID {
	var ids []uuid.UUID
	for _, e := range c.Tickets {
		if e.IsRunning() {
			ids = append(ids, e.TicketID)
		}
	}
	return ids
}

// Close folds the running time into AccumulatedTime and sets EndTime. Every
// entry must already be stopped; Close reports false for an already closed event.
func (c *ClockEvent) Close(nowMs int64) bool {
	if c.EndTime != nil {
		return false
	}
	c.AccumulatedTime += SecondsBetween(c.StartTimestamp, nowMs)
	end := nowMs
	c.EndTime = &end
	return true
}

// IsRunning reports whether the entry timer is running.
func (e *TicketTimeEntry) IsRunning() bool {
	return e.StartTimestamp != nil
}

// Start begins a new segment. Starting a running entry is a no-op.
func (e *TicketTimeEntry) Start(nowMs int64) bool {
	if e.StartTimestamp != nil {
		return false
	}
	start := nowMs
	e.StartTimestamp = &start
	return true
}

// Stop folds the running segment into AccumulatedTime and appends it to the
// history. Stopping a stopped entry is a no-op.
func (e *TicketTimeEntry) Stop(nowMs int64) bool {
	if e.StartTimestamp == nil {
		return false
	}
	start := *e.StartTimestamp
	end := nowMs
	e.AccumulatedTime += SecondsBetween(start, end)
	e.Sessions = append(e.Sessions, EntrySegment{StartTimestamp: start, EndTimestamp: &end})
	e.StartTimestamp = nil
	return true
}

// Elapsed returns banked seconds plus the running segment, if any.
func (e *TicketTimeEntry) Elapsed(nowMs int64) int64 {
	if e.StartTimestamp == nil {
		return e.AccumulatedTime
	}
	return e.AccumulatedTime + SecondsBetween(*e.StartTimestamp, nowMs)
}

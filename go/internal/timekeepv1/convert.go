package timekeepv1

import (
	"github.com/mcdev12/timekeep/go/internal/models"
)

// FromClockEvent converts a stored clock event to its wire form.
func FromClockEvent(ce *models.ClockEvent) *ClockEvent {
	if ce == nil {
		return nil
	}
	out := &ClockEvent{
		Id:              ce.ID.String(),
		UserId:          ce.UserID.String(),
		TeamId:          ce.TeamID.String(),
		StartTimestamp:  ce.StartTimestamp,
		EndTime:         ce.EndTime,
		AccumulatedTime: ce.AccumulatedTime,
		Tickets:         make([]TicketTimeEntry, 0, len(ce.Tickets)),
		EditedAt:        ce.EditedAt,
	}
	if ce.EditedBy != nil {
		out.EditedBy = ce.EditedBy.String()
	}
	for _, e := range ce.Tickets {
		entry := TicketTimeEntry{
			TicketId:        e.TicketID.String(),
			StartTimestamp:  e.StartTimestamp,
			AccumulatedTime: e.AccumulatedTime,
			Sessions:        make([]EntrySegment, 0, len(e.Sessions)),
		}
		for _, s := range e.Sessions {
			entry.Sessions = append(entry.Sessions, EntrySegment{StartTimestamp: s.StartTimestamp, EndTimestamp: s.EndTimestamp})
		}
		out.Tickets = append(out.Tickets, entry)
	}
	return out
}

// FromClockEvents converts a list, preserving order.
func FromClockEvents(events []models.ClockEvent) []*ClockEvent {
	out := make([]*ClockEvent, 0, len(events))
	for i := range events {
		out = append(out, FromClockEvent(&events[i]))
	}
	return out
}

// FromTicket converts a stored ticket to its wire form.
func FromTicket(t *models.Ticket) *Ticket {
	if t == nil {
		return nil
	}
	out := &Ticket{
		Id:              t.ID.String(),
		TeamId:          t.TeamID.String(),
		Title:           t.Title,
		AccumulatedTime: t.AccumulatedTime,
		StartTimestamp:  t.StartTimestamp,
	}
	if t.RunningBy != nil {
		out.RunningBy = t.RunningBy.String()
	}
	return out
}

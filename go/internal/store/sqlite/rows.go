package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/models"
)

// clockEventRow is the gorm mapping of a clock event document. Ticket entries
// stay embedded as a JSON column so the document shape is preserved.
type clockEventRow struct {
	ID              string `gorm:"primaryKey"`
	UserID          string `gorm:"not null;index:idx_clock_events_user_start,priority:1"`
	TeamID          string `gorm:"not null;index"`
	StartTimestamp  int64  `gorm:"not null;index:idx_clock_events_user_start,priority:2"`
	EndTime         *int64
	AccumulatedTime int64  `gorm:"not null;default:0"`
	Tickets         string `gorm:"not null;default:'[]'"`
	EditedAt        *int64
	EditedBy        *string
}

func (clockEventRow) TableName() string { return "clock_events" }

type ticketRow struct {
	ID              string `gorm:"primaryKey"`
	TeamID          string `gorm:"not null;index"`
	Title           string `gorm:"not null"`
	AccumulatedTime int64  `gorm:"not null;default:0"`
	StartTimestamp  *int64
	RunningBy       *string
}

func (ticketRow) TableName() string { return "tickets" }

func clockEventToRow(ce *models.ClockEvent) (clockEventRow, error) {
	entries := ce.Tickets
	if entries == nil {
		entries = []models.TicketTimeEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return clockEventRow{}, fmt.Errorf("failed to marshal ticket entries: %w", err)
	}
	return clockEventRow{
		ID:              ce.ID.String(),
		UserID:          ce.UserID.String(),
		TeamID:          ce.TeamID.String(),
		StartTimestamp:  ce.StartTimestamp,
		EndTime:         ce.EndTime,
		AccumulatedTime: ce.AccumulatedTime,
		Tickets:         string(data),
		EditedAt:        ce.EditedAt,
		EditedBy:        uuidPtrToString(ce.EditedBy),
	}, nil
}

func rowToClockEvent(row clockEventRow) (*models.ClockEvent, error) {
	ce := &models.ClockEvent{
		StartTimestamp:  row.StartTimestamp,
		EndTime:         row.EndTime,
		AccumulatedTime: row.AccumulatedTime,
		EditedAt:        row.EditedAt,
	}
	var err error
	if ce.ID, err = uuid.Parse(row.ID); err != nil {
		return nil, fmt.Errorf("invalid clock event id %q: %w", row.ID, err)
	}
	if ce.UserID, err = uuid.Parse(row.UserID); err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", row.UserID, err)
	}
	if ce.TeamID, err = uuid.Parse(row.TeamID); err != nil {
		return nil, fmt.Errorf("invalid team id %q: %w", row.TeamID, err)
	}
	if ce.EditedBy, err = stringToUUIDPtr(row.EditedBy); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(row.Tickets), &ce.Tickets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticket entries: %w", err)
	}
	return ce, nil
}

func ticketToRow(t *models.Ticket) ticketRow {
	return ticketRow{
		ID:              t.ID.String(),
		TeamID:          t.TeamID.String(),
		Title:           t.Title,
		AccumulatedTime: t.AccumulatedTime,
		StartTimestamp:  t.StartTimestamp,
		RunningBy:       uuidPtrToString(t.RunningBy),
	}
}

func rowToTicket(row ticketRow) (*models.Ticket, error) {
	t := &models.Ticket{
		Title:           row.Title,
		AccumulatedTime: row.AccumulatedTime,
		StartTimestamp:  row.StartTimestamp,
	}
	var err error
	if t.ID, err = uuid.Parse(row.ID); err != nil {
		return nil, fmt.Errorf("invalid ticket id %q: %w", row.ID, err)
	}
	if t.TeamID, err = uuid.Parse(row.TeamID); err != nil {
		return nil, fmt.Errorf("invalid team id %q: %w", row.TeamID, err)
	}
	if t.RunningBy, err = stringToUUIDPtr(row.RunningBy); err != nil {
		return nil, err
	}
	return t, nil
}

func uuidPtrToString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func stringToUUIDPtr(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid %q: %w", *s, err)
	}
	return &id, nil
}

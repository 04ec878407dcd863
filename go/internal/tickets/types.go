package tickets

import (
	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/models"
)

// CreateTicketRequest represents the data needed to create a ticket
type CreateTicketRequest struct {
	TeamID uuid.UUID `json:"team_id"`
	Title  string    `json:"title"`
}

// TimerResult is the state after a start or stop. ClockEvent is the named
// session, or for a stop without one the open session whose entry was
// stopped. Changed is false for no-ops.
type TimerResult struct {
	Ticket     *models.Ticket
	ClockEvent *models.ClockEvent
	Changed    bool
}

// SwitchResult holds the stopped ticket, if any, and the started one.
type SwitchResult struct {
	Previous   *models.Ticket
	Ticket     *models.Ticket
	ClockEvent *models.ClockEvent
}

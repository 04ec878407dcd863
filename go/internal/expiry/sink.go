package expiry

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/models"
)

// Status is the advisory snapshot of one open session.
type Status struct {
	ClockEventID        uuid.UUID `json:"clockEventId"`
	TeamID              uuid.UUID `json:"teamId"`
	ElapsedSeconds      int64     `json:"elapsedSeconds"`
	SecondsUntilCap     int64     `json:"secondsUntilCap"`
	SecondsUntilCutover int64     `json:"secondsUntilCutover"`
	Warning             bool      `json:"warning"`
}

// Closed tells a user that the system closed their session.
type Closed struct {
	ClockEventID   uuid.UUID `json:"clockEventId"`
	TeamID         uuid.UUID `json:"teamId"`
	Reason         Reason    `json:"reason"`
	Duration       string    `json:"duration"`
	AccumulatedSec int64     `json:"accumulatedSeconds"`
	Message        string    `json:"message"`
}

// Sink receives client-facing expiry events. Implementations must not block.
type Sink interface {
	SessionStatus(userID uuid.UUID, s Status)
	SessionWarning(userID uuid.UUID, s Status)
	SessionClosed(userID uuid.UUID, c Closed)
}

type discardSink struct{}

func (discardSink) SessionStatus(uuid.UUID, Status)  {}
func (discardSink) SessionWarning(uuid.UUID, Status) {}
func (discardSink) SessionClosed(uuid.UUID, Closed)  {}

func closedNotice(ce *models.ClockEvent, reason Reason, p Policy) Closed {
	duration := models.FormatDuration(ce.AccumulatedTime)
	return Closed{
		ClockEventID:   ce.ID,
		TeamID:         ce.TeamID,
		Reason:         reason,
		Duration:       duration,
		AccumulatedSec: ce.AccumulatedTime,
		Message:        closedMessage(reason, duration, p),
	}
}

func closedMessage(reason Reason, duration string, p Policy) string {
	if reason == ReasonCap {
		return fmt.Sprintf("Your session reached the %g-hour limit and was clocked out after %s.", p.Cap.Hours(), duration)
	}
	return "Your session was clocked out at midnight after " + duration + "."
}

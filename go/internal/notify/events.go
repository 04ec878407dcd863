package notify

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an accounting event that users or admins hear about.
type EventType string

const (
	EventClockIn         EventType = "ClockIn"
	EventClockOut        EventType = "ClockOut"
	EventForceStopped    EventType = "ForceStopped"
	EventMidnightWarning EventType = "MidnightWarning"
)

// RecipientKind selects how the delivery side resolves a recipient.
type RecipientKind string

const (
	RecipientUser       RecipientKind = "user"
	RecipientTeamAdmins RecipientKind = "team_admins"
)

// Recipient is either one user or the admins of one team. Resolving team
// admins to devices happens on the delivery side.
type Recipient struct {
	Kind RecipientKind `json:"kind"`
	ID   uuid.UUID     `json:"id"`
}

// User addresses a single user.
func User(id uuid.UUID) Recipient {
	return Recipient{Kind: RecipientUser, ID: id}
}

// TeamAdmins addresses every admin of a team.
func TeamAdmins(teamID uuid.UUID) Recipient {
	return Recipient{Kind: RecipientTeamAdmins, ID: teamID}
}

// Message is the user-facing content of a notification.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notification is one queued delivery.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Type      EventType `json:"type"`
	Recipient Recipient `json:"recipient"`
	Message   Message   `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

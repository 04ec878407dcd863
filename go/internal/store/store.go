// Package store defines the transactional document store behind the ledger.
// Two collections live here: clock events (with embedded ticket entries) and
// tickets. Implementations live in store/postgres and store/sqlite.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/models"
)

// Tx is a unit of work. Reads through a Tx lock the returned documents until
// the transaction ends, so read-modify-write sequences are safe. Lookups of a
// missing document return an error wrapping apperr.ErrNotFound.
type Tx interface {
	ClockEvent(ctx context.Context, id uuid.UUID) (*models.ClockEvent, error)
	// OpenClockEvent returns nil, nil when the key has no open session.
	OpenClockEvent(ctx context.Context, userID, teamID uuid.UUID) (*models.ClockEvent, error)
	InsertClockEvent(ctx context.Context, ce *models.ClockEvent) error
	SaveClockEvent(ctx context.Context, ce *models.ClockEvent) error

	Ticket(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	// RunningTicket returns nil, nil when the user has no ticket timer running.
	RunningTicket(ctx context.Context, userID uuid.UUID) (*models.Ticket, error)
	SaveTicket(ctx context.Context, t *models.Ticket) error
}

// ClockEventFilter narrows ListClockEvents. Zero values mean "no constraint";
// From is inclusive and To exclusive, both epoch milliseconds on StartTimestamp.
type ClockEventFilter struct {
	UserID   *uuid.UUID
	TeamID   *uuid.UUID
	From     *int64
	To       *int64
	OpenOnly bool
}

// Store is the full storage surface; packages depend on narrower interfaces.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetClockEvent(ctx context.Context, id uuid.UUID) (*models.ClockEvent, error)
	ListClockEvents(ctx context.Context, filter ClockEventFilter) ([]models.ClockEvent, error)

	CreateTicket(ctx context.Context, t *models.Ticket) error
	GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	GetTickets(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Ticket, error)
	ListTickets(ctx context.Context, teamID uuid.UUID) ([]models.Ticket, error)

	Migrate(ctx context.Context) error
	Close() error
}

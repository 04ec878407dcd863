package tickets

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeep/go/internal/access"
	"github.com/mcdev12/timekeep/go/internal/apperr"
	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/store"
	"github.com/rs/zerolog/log"
)

// Store defines what the tracker needs from storage
type Store interface {
	InTx(ctx context.Context, fn func(tx store.Tx) error) error
	CreateTicket(ctx context.Context, t *models.Ticket) error
	GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	ListTickets(ctx context.Context, teamID uuid.UUID) ([]models.Ticket, error)
}

// App tracks ticket timers and their entries inside clock sessions.
type App struct {
	store Store
	dir   access.Directory
	clock clockwork.Clock
}

// NewApp creates a new ticket tracker App
func NewApp(st Store, dir access.Directory, clock clockwork.Clock) *App {
	return &App{
		store: st,
		dir:   dir,
		clock: clock,
	}
}

// CreateTicket creates a ticket on a team the actor belongs to
func (a *App) CreateTicket(ctx context.Context, req CreateTicketRequest) (*models.Ticket, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("ticket title is required: %w", apperr.ErrValidation)
	}
	if _, err := access.RequireMember(ctx, a.dir, req.TeamID); err != nil {
		return nil, err
	}

	t := &models.Ticket{
		ID:     uuid.New(),
		TeamID: req.TeamID,
		Title:  title,
	}
	if err := a.store.CreateTicket(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	log.Info().Str("ticket_id", t.ID.String()).Str("team_id", t.TeamID.String()).Msg("created ticket")
	return t, nil
}

// GetTicket retrieves a ticket visible to the actor
func (a *App) GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	t, err := a.store.GetTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if _, err := access.RequireMember(ctx, a.dir, t.TeamID); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTickets lists a team's tickets by title
func (a *App) ListTickets(ctx context.Context, teamID uuid.UUID) ([]models.Ticket, error) {
	if _, err := access.RequireMember(ctx, a.dir, teamID); err != nil {
		return nil, err
	}
	tickets, err := a.store.ListTickets(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// StartTicket starts the actor's timer on a ticket, and on its entry inside
// sessionID when given. It fails with ErrConflict when the actor already has
// another ticket running or someone else is timing this one.
func (a *App) StartTicket(ctx context.Context, ticketID uuid.UUID, sessionID *uuid.UUID) (*TimerResult, error) {
	actor, err := access.ActorFrom(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := a.lookupTicket(ctx, ticketID, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to start ticket: %w", err)
	}

	now := models.Millis(a.clock.Now())
	res := &TimerResult{}
	err = a.store.InTx(ctx, func(tx store.Tx) error {
		// Sessions are locked before tickets, the same order CloseSession takes.
		var ce *models.ClockEvent
		if sessionID != nil {
			if ce, err = lockSession(ctx, tx, *sessionID, actor); err != nil {
				return err
			}
			if !ce.IsOpen() {
				return fmt.Errorf("clock event %s is closed: %w", ce.ID, apperr.ErrValidation)
			}
			if ce.TeamID != meta.TeamID {
				return fmt.Errorf("ticket %s does not belong to the clock event's team: %w", meta.ID, apperr.ErrValidation)
			}
		}

		t, err := tx.Ticket(ctx, ticketID)
		if err != nil {
			return err
		}
		running, err := tx.RunningTicket(ctx, actor)
		if err != nil {
			return err
		}
		if running != nil && running.ID != t.ID {
			return fmt.Errorf("ticket %s is already running: %w", running.ID, apperr.ErrConflict)
		}
		if t.RunningBy != nil && *t.RunningBy != actor {
			return fmt.Errorf("ticket %s is being timed by another user: %w", t.ID, apperr.ErrConflict)
		}

		seed := t.AccumulatedTime
		if t.Start(actor, now) {
			if err := tx.SaveTicket(ctx, t); err != nil {
				return err
			}
			res.Changed = true
		}
		if ce != nil {
			before := len(ce.Tickets)
			entry := ce.AddEntry(t.ID, seed)
			if entry.Start(now) || len(ce.Tickets) != before {
				if err := tx.SaveClockEvent(ctx, ce); err != nil {
					return err
				}
				res.Changed = true
			}
		}
		res.Ticket, res.ClockEvent = t, ce
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start ticket: %w", err)
	}

	if res.Changed {
		log.Info().
			Str("ticket_id", ticketID.String()).
			Str("user_id", actor.String()).
			Bool("in_session", sessionID != nil).
			Msg("started ticket timer")
	}
	return res, nil
}

// StopTicket folds the running time into the ticket and into its entry in the
// actor's open session for the ticket's team. Both writes commit together.
// sessionID, when given, must belong to the actor and is returned in the
// result. Stopping a ticket that is not running is a no-op.
func (a *App) StopTicket(ctx context.Context, ticketID uuid.UUID, sessionID *uuid.UUID) (*TimerResult, error) {
	actor, err := access.ActorFrom(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := a.lookupTicket(ctx, ticketID, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to stop ticket: %w", err)
	}

	now := models.Millis(a.clock.Now())
	res := &TimerResult{}
	err = a.store.InTx(ctx, func(tx store.Tx) error {
		res.Ticket, res.ClockEvent, res.Changed, err = stopInTx(ctx, tx, actor, meta.TeamID, ticketID, sessionID, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stop ticket: %w", err)
	}

	if res.Changed {
		log.Info().
			Str("ticket_id", ticketID.String()).
			Str("user_id", actor.String()).
			Int64("accumulated_seconds", res.Ticket.AccumulatedTime).
			Msg("stopped ticket timer")
	}
	return res, nil
}

// SwitchTicket stops whatever ticket the actor has running and then starts
// newTicketID. The start is not attempted when the stop fails.
func (a *App) SwitchTicket(ctx context.Context, newTicketID uuid.UUID, sessionID *uuid.UUID) (*SwitchResult, error) {
	actor, err := access.ActorFrom(ctx)
	if err != nil {
		return nil, err
	}

	var current *models.Ticket
	err = a.store.InTx(ctx, func(tx store.Tx) error {
		current, err = tx.RunningTicket(ctx, actor)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up running ticket: %w", err)
	}

	out := &SwitchResult{}
	if current != nil && current.ID != newTicketID {
		stopped, err := a.StopTicket(ctx, current.ID, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to stop current ticket: %w", err)
		}
		out.Previous = stopped.Ticket
	}

	started, err := a.StartTicket(ctx, newTicketID, sessionID)
	if err != nil {
		return nil, err
	}
	out.Ticket = started.Ticket
	out.ClockEvent = started.ClockEvent
	return out, nil
}

// stopInTx stops ticketID for actor. The entry stopped is the one in the
// actor's open session for teamID, which may differ from the named session
// when a switch crosses teams or names none.
func stopInTx(ctx context.Context, tx store.Tx, actor, teamID, ticketID uuid.UUID, sessionID *uuid.UUID, now int64) (*models.Ticket, *models.ClockEvent, bool, error) {
	var named *models.ClockEvent
	var err error
	if sessionID != nil {
		if named, err = lockSession(ctx, tx, *sessionID, actor); err != nil {
			return nil, nil, false, err
		}
	}
	host := named
	if host == nil || !host.IsOpen() || host.TeamID != teamID {
		if host, err = tx.OpenClockEvent(ctx, actor, teamID); err != nil {
			return nil, nil, false, err
		}
	}

	t, err := tx.Ticket(ctx, ticketID)
	if err != nil {
		return nil, nil, false, err
	}
	if t.RunningBy != nil && *t.RunningBy != actor {
		return nil, nil, false, fmt.Errorf("ticket %s is being timed by another user: %w", t.ID, apperr.ErrNotAuthorized)
	}

	changed := false
	if t.Stop(now) {
		if err := tx.SaveTicket(ctx, t); err != nil {
			return nil, nil, false, err
		}
		changed = true
	}
	if host != nil {
		if entry := host.Entry(t.ID); entry != nil && entry.Stop(now) {
			if err := tx.SaveClockEvent(ctx, host); err != nil {
				return nil, nil, false, err
			}
			changed = true
		}
	}

	if named == nil {
		named = host
	}
	return t, named, changed, nil
}

// lookupTicket reads a ticket without locking it. Only the team is used, and
// a ticket never changes team.
func (a *App) lookupTicket(ctx context.Context, ticketID, actor uuid.UUID) (*models.Ticket, error) {
	t, err := a.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireMember(ctx, a.dir, t.TeamID, actor); err != nil {
		return nil, err
	}
	return t, nil
}

func lockSession(ctx context.Context, tx store.Tx, sessionID, actor uuid.UUID) (*models.ClockEvent, error) {
	ce, err := tx.ClockEvent(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ce.UserID != actor {
		return nil, fmt.Errorf("clock event %s belongs to another user: %w", ce.ID, apperr.ErrNotAuthorized)
	}
	return ce, nil
}

func requireMember(ctx context.Context, dir access.Directory, teamID, actor uuid.UUID) error {
	ok, err := dir.IsMember(ctx, teamID, actor)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return fmt.Errorf("user %s is not a member of team %s: %w", actor, teamID, apperr.ErrNotAuthorized)
	}
	return nil
}

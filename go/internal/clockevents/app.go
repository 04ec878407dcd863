package clockevents

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeep/go/internal/access"
	"github.com/mcdev12/timekeep/go/internal/apperr"
	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/notify"
	"github.com/mcdev12/timekeep/go/internal/store"
	"github.com/rs/zerolog/log"
)

// Store defines what the ledger needs from storage
type Store interface {
	InTx(ctx context.Context, fn func(tx store.Tx) error) error
	ListClockEvents(ctx context.Context, filter store.ClockEventFilter) ([]models.ClockEvent, error)
}

// App is the session ledger: it opens and closes team clock sessions.
type App struct {
	store    Store
	dir      access.Directory
	notifier notify.Dispatcher
	clock    clockwork.Clock
	loc      *time.Location
	onChange []func()
}

// NewApp creates a new ledger App
func NewApp(st Store, dir access.Directory, notifier notify.Dispatcher, clock clockwork.Clock, loc *time.Location) *App {
	if loc == nil {
		loc = time.Local
	}
	return &App{
		store:    st,
		dir:      dir,
		notifier: notifier,
		clock:    clock,
		loc:      loc,
	}
}

// OnChange registers fn to run after every committed open or close.
// Registration must happen before the App serves requests.
func (a *App) OnChange(fn func()) {
	a.onChange = append(a.onChange, fn)
}

func (a *App) changed() {
	for _, fn := range a.onChange {
		fn()
	}
}

// Start clocks the actor in to teamID. A stray open session for the same key
// is closed through the normal close path first.
func (a *App) Start(ctx context.Context, teamID uuid.UUID) (*models.ClockEvent, error) {
	actor, err := access.RequireMember(ctx, a.dir, teamID)
	if err != nil {
		return nil, err
	}

	now := models.Millis(a.clock.Now())
	ce := &models.ClockEvent{
		ID:             uuid.New(),
		UserID:         actor,
		TeamID:         teamID,
		StartTimestamp: now,
		Tickets:        []models.TicketTimeEntry{},
	}

	err = a.store.InTx(ctx, func(tx store.Tx) error {
		stray, err := tx.OpenClockEvent(ctx, actor, teamID)
		if err != nil {
			return err
		}
		if stray != nil {
			if _, err := CloseSession(ctx, tx, stray, now); err != nil {
				return fmt.Errorf("failed to close stray session %s: %w", stray.ID, err)
			}
			log.Warn().
				Str("clock_event_id", stray.ID.String()).
				Str("user_id", actor.String()).
				Msg("closed stray open session on clock-in")
		}
		return tx.InsertClockEvent(ctx, ce)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start clock event: %w", err)
	}

	log.Info().
		Str("clock_event_id", ce.ID.String()).
		Str("user_id", actor.String()).
		Str("team_id", teamID.String()).
		Msg("clocked in")

	a.notifier.Notify(ctx, notify.EventClockIn, notify.User(actor), notify.Message{
		Title: "Clocked in",
		Body:  "You clocked in at " + models.FromMillis(now, a.loc).Format("15:04") + ".",
		Data:  map[string]string{"clock_event_id": ce.ID.String(), "team_id": teamID.String()},
	})
	a.changed()
	return ce, nil
}

// Stop clocks the actor out of teamID. Without an open session this is a
// no-op and reports false.
func (a *App) Stop(ctx context.Context, teamID uuid.UUID) (*models.ClockEvent, bool, error) {
	actor, err := access.RequireMember(ctx, a.dir, teamID)
	if err != nil {
		return nil, false, err
	}

	now := models.Millis(a.clock.Now())
	var closed *models.ClockEvent
	err = a.store.InTx(ctx, func(tx store.Tx) error {
		ce, err := tx.OpenClockEvent(ctx, actor, teamID)
		if err != nil || ce == nil {
			return err
		}
		ok, err := CloseSession(ctx, tx, ce, now)
		if err != nil {
			return err
		}
		if ok {
			closed = ce
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to stop clock event: %w", err)
	}
	if closed == nil {
		return nil, false, nil
	}

	duration := models.FormatDuration(closed.AccumulatedTime)
	log.Info().
		Str("clock_event_id", closed.ID.String()).
		Str("user_id", actor.String()).
		Int64("accumulated_seconds", closed.AccumulatedTime).
		Msg("clocked out")

	a.notifier.Notify(ctx, notify.EventClockOut, notify.User(actor), notify.Message{
		Title: "Clocked out",
		Body:  "You worked " + duration + ".",
		Data: map[string]string{
			"clock_event_id": closed.ID.String(),
			"team_id":        teamID.String(),
			"duration":       duration,
		},
	})
	a.changed()
	return closed, true, nil
}

// ForceStop closes a session on behalf of the system. It needs no actor and
// reports false when the session was already closed.
func (a *App) ForceStop(ctx context.Context, clockEventID uuid.UUID, reason string) (*models.ClockEvent, bool, error) {
	now := models.Millis(a.clock.Now())
	var closed *models.ClockEvent
	err := a.store.InTx(ctx, func(tx store.Tx) error {
		ce, err := tx.ClockEvent(ctx, clockEventID)
		if err != nil {
			return err
		}
		ok, err := CloseSession(ctx, tx, ce, now)
		if err != nil {
			return err
		}
		if ok {
			closed = ce
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to force stop clock event %s: %w", clockEventID, err)
	}
	if closed == nil {
		return nil, false, nil
	}

	log.Info().
		Str("clock_event_id", closed.ID.String()).
		Str("user_id", closed.UserID.String()).
		Str("reason", reason).
		Int64("accumulated_seconds", closed.AccumulatedTime).
		Msg("force stopped clock event")
	a.changed()
	return closed, true, nil
}

// Query lists a user's sessions, newest first. Users read their own history;
// team admins may read their members' history when teamID is given.
func (a *App) Query(ctx context.Context, userID uuid.UUID, teamID *uuid.UUID) ([]models.ClockEvent, error) {
	if _, err := access.RequireSelfOrAdmin(ctx, a.dir, userID, teamID); err != nil {
		return nil, err
	}
	events, err := a.store.ListClockEvents(ctx, store.ClockEventFilter{UserID: &userID, TeamID: teamID})
	if err != nil {
		return nil, fmt.Errorf("failed to list clock events: %w", err)
	}
	slices.Reverse(events)
	return events, nil
}

// CloseSession stops every running entry of ce and the matching ticket timers,
// then closes ce, all through tx. Already closed sessions are left untouched
// and reported as false.
func CloseSession(ctx context.Context, tx store.Tx, ce *models.ClockEvent, nowMs int64) (bool, error) {
	if !ce.IsOpen() {
		return false, nil
	}

	for _, ticketID := range ce.RunningEntries() {
		ce.Entry(ticketID).Stop(nowMs)

		t, err := tx.Ticket(ctx, ticketID)
		if errors.Is(err, apperr.ErrNotFound) {
			log.Warn().
				Str("clock_event_id", ce.ID.String()).
				Str("ticket_id", ticketID.String()).
				Msg("running entry references a missing ticket")
			continue
		}
		if err != nil {
			return false, err
		}
		if t.RunningBy != nil && *t.RunningBy == ce.UserID && t.Stop(nowMs) {
			if err := tx.SaveTicket(ctx, t); err != nil {
				return false, err
			}
		}
	}

	ce.Close(nowMs)
	if err := tx.SaveClockEvent(ctx, ce); err != nil {
		return false, err
	}
	return true, nil
}

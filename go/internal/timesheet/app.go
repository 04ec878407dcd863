package timesheet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeep/go/internal/access"
	"github.com/mcdev12/timekeep/go/internal/apperr"
	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/store"
	"github.com/rs/zerolog/log"
)

// Store defines what the aggregator needs from storage
type Store interface {
	InTx(ctx context.Context, fn func(tx store.Tx) error) error
	ListClockEvents(ctx context.Context, filter store.ClockEventFilter) ([]models.ClockEvent, error)
	GetTickets(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Ticket, error)
}

// App builds timesheet rows and totals and applies admin boundary edits.
type App struct {
	store       Store
	dir         access.Directory
	clock       clockwork.Clock
	loc         *time.Location
	urlTemplate string
}

// NewApp creates a new timesheet App. urlTemplate may contain {id} and
// {team}, replaced with the ticket and team IDs.
func NewApp(st Store, dir access.Directory, clock clockwork.Clock, loc *time.Location, urlTemplate string) *App {
	if loc == nil {
		loc = time.Local
	}
	return &App{
		store:       st,
		dir:         dir,
		clock:       clock,
		loc:         loc,
		urlTemplate: urlTemplate,
	}
}

// ComputeSessionData returns one row per session of userID that started
// inside r, oldest first. Running sessions have no end or duration, and their
// running ticket entries include the time elapsed so far.
func (a *App) ComputeSessionData(ctx context.Context, userID uuid.UUID, teamID *uuid.UUID, r DateRange) ([]SessionRow, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}
	if _, err := access.RequireSelfOrAdmin(ctx, a.dir, userID, teamID); err != nil {
		return nil, err
	}

	events, err := a.store.ListClockEvents(ctx, store.ClockEventFilter{
		UserID: &userID,
		TeamID: teamID,
		From:   &r.From,
		To:     &r.To,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list clock events: %w", err)
	}

	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, ce := range events {
		for _, e := range ce.Tickets {
			if !seen[e.TicketID] {
				seen[e.TicketID] = true
				ids = append(ids, e.TicketID)
			}
		}
	}
	tickets, err := a.store.GetTickets(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}

	nowMs := models.Millis(a.clock.Now())
	rows := make([]SessionRow, 0, len(events))
	for _, ce := range events {
		row := SessionRow{
			ClockEventID:    ce.ID,
			Date:            models.FromMillis(ce.StartTimestamp, a.loc).Format(time.DateOnly),
			StartTime:       ce.StartTimestamp,
			EndTime:         ce.EndTime,
			TicketsWorkedOn: make([]TicketWorked, 0, len(ce.Tickets)),
		}
		if ce.EndTime != nil {
			d := (*ce.EndTime - ce.StartTimestamp) / 1000
			row.Duration = &d
		}
		for _, e := range ce.Tickets {
			t := tickets[e.TicketID]
			row.TicketsWorkedOn = append(row.TicketsWorkedOn, TicketWorked{
				TicketID:        e.TicketID,
				Title:           t.Title,
				URL:             a.ticketURL(e.TicketID, ce.TeamID),
				DurationSeconds: e.Elapsed(nowMs),
			})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TotalHours sums every session of userID overlapping r. Each session is
// measured unclipped, from its start to its end (or now), and floored to
// whole minutes before it is added.
func (a *App) TotalHours(ctx context.Context, userID uuid.UUID, teamID *uuid.UUID, r DateRange) (*Totals, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}
	if _, err := access.RequireSelfOrAdmin(ctx, a.dir, userID, teamID); err != nil {
		return nil, err
	}

	// anything starting before r.To may overlap; the end is checked below
	events, err := a.store.ListClockEvents(ctx, store.ClockEventFilter{
		UserID: &userID,
		TeamID: teamID,
		To:     &r.To,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list clock events: %w", err)
	}

	nowMs := models.Millis(a.clock.Now())
	var minutes int64
	for _, ce := range events {
		end := nowMs
		if ce.EndTime != nil {
			end = *ce.EndTime
		}
		if end <= r.From || end <= ce.StartTimestamp {
			continue
		}
		minutes += (end - ce.StartTimestamp) / 60000
	}

	return &Totals{Minutes: minutes, Hours: float64(minutes) / 60}, nil
}

// EditSession lets a team admin overwrite a session's start or end. The
// stored accumulated time, entries and ticket totals are left as they were;
// the edit is stamped with who made it and when.
func (a *App) EditSession(ctx context.Context, req EditRequest) (*models.ClockEvent, error) {
	actor, err := access.ActorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if req.StartTimestamp == nil && req.EndTimestamp == nil {
		return nil, fmt.Errorf("nothing to edit: %w", apperr.ErrValidation)
	}

	nowMs := models.Millis(a.clock.Now())
	var edited *models.ClockEvent
	err = a.store.InTx(ctx, func(tx store.Tx) error {
		ce, err := tx.ClockEvent(ctx, req.ClockEventID)
		if err != nil {
			return err
		}
		ok, err := a.dir.IsAdmin(ctx, ce.TeamID, actor)
		if err != nil {
			return fmt.Errorf("failed to check team admin: %w", err)
		}
		if !ok {
			return fmt.Errorf("user %s is not an admin of team %s: %w", actor, ce.TeamID, apperr.ErrNotAuthorized)
		}

		if err := applyEdit(ce, req, nowMs); err != nil {
			return err
		}
		stamp, by := nowMs, actor
		ce.EditedAt, ce.EditedBy = &stamp, &by

		if err := tx.SaveClockEvent(ctx, ce); err != nil {
			return err
		}
		edited = ce
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to edit clock event: %w", err)
	}

	log.Info().
		Str("clock_event_id", edited.ID.String()).
		Str("edited_by", actor.String()).
		Int64("start_timestamp", edited.StartTimestamp).
		Msg("edited clock event boundaries")
	return edited, nil
}

func applyEdit(ce *models.ClockEvent, req EditRequest, nowMs int64) error {
	if req.EndTimestamp != nil && ce.IsOpen() {
		return fmt.Errorf("cannot set the end of an open session; clock out instead: %w", apperr.ErrValidation)
	}

	start := ce.StartTimestamp
	if req.StartTimestamp != nil {
		start = *req.StartTimestamp
	}
	if start > nowMs {
		return fmt.Errorf("start is in the future: %w", apperr.ErrValidation)
	}

	end := ce.EndTime
	if req.EndTimestamp != nil {
		end = req.EndTimestamp
	}
	if end != nil {
		if *end <= start {
			return fmt.Errorf("end must be after start: %w", apperr.ErrValidation)
		}
		if *end > nowMs {
			return fmt.Errorf("end is in the future: %w", apperr.ErrValidation)
		}
	}

	ce.StartTimestamp = start
	if end != nil {
		e := *end
		ce.EndTime = &e
	}
	return nil
}

func (a *App) ticketURL(ticketID, teamID uuid.UUID) string {
	if a.urlTemplate == "" {
		return ""
	}
	return strings.NewReplacer("{id}", ticketID.String(), "{team}", teamID.String()).Replace(a.urlTemplate)
}

func validateRange(r DateRange) error {
	if r.To <= r.From {
		return fmt.Errorf("range end must be after its start: %w", apperr.ErrValidation)
	}
	return nil
}

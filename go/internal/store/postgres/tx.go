package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/timekeep/go/internal/apperr"
	"github.com/mcdev12/timekeep/go/internal/models"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// tx implements store.Tx. Every read takes FOR UPDATE so concurrent writers on
// the same document queue behind each other.
type tx struct {
	q querier
}

func (t *tx) ClockEvent(ctx context.Context, id uuid.UUID) (*models.ClockEvent, error) {
	row := t.q.QueryRow(ctx, `SELECT `+clockEventColumns+` FROM clock_events WHERE id = $1 FOR UPDATE`, id)
	ce, err := scanClockEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("clock event %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock clock event: %w", err)
	}
	return ce, nil
}

func (t *tx) OpenClockEvent(ctx context.Context, userID, teamID uuid.UUID) (*models.ClockEvent, error) {
	row := t.q.QueryRow(ctx, `
		SELECT `+clockEventColumns+` FROM clock_events
		WHERE user_id = $1 AND team_id = $2 AND end_time IS NULL
		LIMIT 1 FOR UPDATE`, userID, teamID)
	ce, err := scanClockEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock open clock event: %w", err)
	}
	return ce, nil
}

func (t *tx) InsertClockEvent(ctx context.Context, ce *models.ClockEvent) error {
	entries, err := marshalEntries(ce.Tickets)
	if err != nil {
		return err
	}
	_, err = t.q.Exec(ctx, `
		INSERT INTO clock_events (`+clockEventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ce.ID, ce.UserID, ce.TeamID, ce.StartTimestamp, ce.EndTime, ce.AccumulatedTime, entries, ce.EditedAt, ce.EditedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert clock event: %w", translate(err))
	}
	return nil
}

func (t *tx) SaveClockEvent(ctx context.Context, ce *models.ClockEvent) error {
	entries, err := marshalEntries(ce.Tickets)
	if err != nil {
		return err
	}
	tag, err := t.q.Exec(ctx, `
		UPDATE clock_events
		SET start_timestamp = $2, end_time = $3, accumulated_time = $4, tickets = $5, edited_at = $6, edited_by = $7
		WHERE id = $1`,
		ce.ID, ce.StartTimestamp, ce.EndTime, ce.AccumulatedTime, entries, ce.EditedAt, ce.EditedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save clock event: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("clock event %s: %w", ce.ID, apperr.ErrNotFound)
	}
	return nil
}

func (t *tx) Ticket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	row := t.q.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1 FOR UPDATE`, id)
	tk, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ticket %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock ticket: %w", err)
	}
	return tk, nil
}

func (t *tx) RunningTicket(ctx context.Context, userID uuid.UUID) (*models.Ticket, error) {
	row := t.q.QueryRow(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE running_by = $1 AND start_timestamp IS NOT NULL
		LIMIT 1 FOR UPDATE`, userID)
	tk, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock running ticket: %w", err)
	}
	return tk, nil
}

func (t *tx) SaveTicket(ctx context.Context, tk *models.Ticket) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE tickets
		SET title = $2, accumulated_time = $3, start_timestamp = $4, running_by = $5
		WHERE id = $1`,
		tk.ID, tk.Title, tk.AccumulatedTime, tk.StartTimestamp, tk.RunningBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save ticket: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ticket %s: %w", tk.ID, apperr.ErrNotFound)
	}
	return nil
}

func scanClockEvent(row pgx.Row) (*models.ClockEvent, error) {
	var (
		ce      models.ClockEvent
		entries []byte
	)
	err := row.Scan(&ce.ID, &ce.UserID, &ce.TeamID, &ce.StartTimestamp, &ce.EndTime,
		&ce.AccumulatedTime, &entries, &ce.EditedAt, &ce.EditedBy)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(entries, &ce.Tickets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticket entries: %w", err)
	}
	return &ce, nil
}

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var t models.Ticket
	if err := row.Scan(&t.ID, &t.TeamID, &t.Title, &t.AccumulatedTime, &t.StartTimestamp, &t.RunningBy); err != nil {
		return nil, err
	}
	return &t, nil
}

func marshalEntries(entries []models.TicketTimeEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.TicketTimeEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ticket entries: %w", err)
	}
	return data, nil
}

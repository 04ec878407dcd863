// Package postgres is the production document store on pgx. Every mutation
// runs in one transaction that locks the documents it reads, so a ticket stop
// updates the ticket and its clock event entry atomically.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/timekeep/go/internal/apperr"
	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/store"
	"github.com/rs/zerolog/log"
)

const (
	clockEventColumns = `id, user_id, team_id, start_timestamp, end_time, accumulated_time, tickets, edited_at, edited_by`
	ticketColumns     = `id, team_id, title, accumulated_time, start_timestamp, running_by`

	uniqueViolation = "23505"
)

// Store implements store.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate applies the schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info().Msg("postgres schema applied")
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// InTx runs fn inside BEGIN/COMMIT, rolling back when fn fails.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(ptx pgx.Tx) error {
		return fn(&tx{q: ptx})
	})
}

func (s *Store) GetClockEvent(ctx context.Context, id uuid.UUID) (*models.ClockEvent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+clockEventColumns+` FROM clock_events WHERE id = $1`, id)
	ce, err := scanClockEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("clock event %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clock event: %w", err)
	}
	return ce, nil
}

func (s *Store) ListClockEvents(ctx context.Context, filter store.ClockEventFilter) ([]models.ClockEvent, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.UserID != nil {
		add("user_id = $%d", *filter.UserID)
	}
	if filter.TeamID != nil {
		add("team_id = $%d", *filter.TeamID)
	}
	if filter.From != nil {
		add("start_timestamp >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("start_timestamp < $%d", *filter.To)
	}
	if filter.OpenOnly {
		conds = append(conds, "end_time IS NULL")
	}

	query := `SELECT ` + clockEventColumns + ` FROM clock_events`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY start_timestamp ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clock events: %w", err)
	}
	defer rows.Close()

	var events []models.ClockEvent
	for rows.Next() {
		ce, err := scanClockEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clock event: %w", err)
		}
		events = append(events, *ce)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list clock events: %w", err)
	}
	return events, nil
}

func (s *Store) CreateTicket(ctx context.Context, t *models.Ticket) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tickets (`+ticketColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.TeamID, t.Title, t.AccumulatedTime, t.StartTimestamp, t.RunningBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", translate(err))
	}
	return nil
}

func (s *Store) GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ticket %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

func (s *Store) GetTickets(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Ticket, error) {
	out := make(map[uuid.UUID]models.Ticket, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		out[t.ID] = *t
	}
	return out, rows.Err()
}

func (s *Store) ListTickets(ctx context.Context, teamID uuid.UUID) ([]models.Ticket, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE team_id = $1 ORDER BY title`, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// translate maps unique-index violations onto apperr.ErrConflict.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", apperr.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

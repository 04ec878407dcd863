// Package sqlite is the embedded single-node store, built on gorm with the
// pure-Go SQLite driver. All writes go through one connection, which gives the
// same single-writer guarantee the Postgres store gets from row locks.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/apperr"
	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store implements store.Store on SQLite.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

// Migrate creates the schema, including the partial unique indexes that back
// one open session per user and team, and one running ticket per user.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(&clockEventRow{}, &ticketRow{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_clock_events_one_open
			ON clock_events (user_id, team_id) WHERE end_time IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_one_running
			ON tickets (running_by) WHERE start_timestamp IS NOT NULL`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&tx{db: gtx})
	})
}

func (s *Store) GetClockEvent(ctx context.Context, id uuid.UUID) (*models.ClockEvent, error) {
	return (&tx{db: s.db.WithContext(ctx)}).ClockEvent(ctx, id)
}

func (s *Store) ListClockEvents(ctx context.Context, filter store.ClockEventFilter) ([]models.ClockEvent, error) {
	q := s.db.WithContext(ctx).Model(&clockEventRow{})
	if filter.UserID != nil {
		q = q.Where("user_id = ?", filter.UserID.String())
	}
	if filter.TeamID != nil {
		q = q.Where("team_id = ?", filter.TeamID.String())
	}
	if filter.From != nil {
		q = q.Where("start_timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("start_timestamp < ?", *filter.To)
	}
	if filter.OpenOnly {
		q = q.Where("end_time IS NULL")
	}

	var rows []clockEventRow
	if err := q.Order("start_timestamp ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list clock events: %w", err)
	}

	events := make([]models.ClockEvent, 0, len(rows))
	for _, row := range rows {
		ce, err := rowToClockEvent(row)
		if err != nil {
			return nil, err
		}
		events = append(events, *ce)
	}
	return events, nil
}

func (s *Store) CreateTicket(ctx context.Context, t *models.Ticket) error {
	row := ticketToRow(t)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create ticket: %w", translate(err))
	}
	return nil
}

func (s *Store) GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	return (&tx{db: s.db.WithContext(ctx)}).Ticket(ctx, id)
}

func (s *Store) GetTickets(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Ticket, error) {
	out := make(map[uuid.UUID]models.Ticket, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	var rows []ticketRow
	if err := s.db.WithContext(ctx).Where("id IN ?", keys).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	for _, row := range rows {
		t, err := rowToTicket(row)
		if err != nil {
			return nil, err
		}
		out[t.ID] = *t
	}
	return out, nil
}

func (s *Store) ListTickets(ctx context.Context, teamID uuid.UUID) ([]models.Ticket, error) {
	var rows []ticketRow
	if err := s.db.WithContext(ctx).Where("team_id = ?", teamID.String()).Order("title ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	tickets := make([]models.Ticket, 0, len(rows))
	for _, row := range rows {
		t, err := rowToTicket(row)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, nil
}

// translate maps unique-index violations onto apperr.ErrConflict.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", apperr.ErrConflict, err)
	}
	return err
}

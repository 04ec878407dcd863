package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/apperr"
	"github.com/mcdev12/timekeep/go/internal/models"
	"gorm.io/gorm"
)

// tx implements store.Tx. SQLite has no row locks; the single connection
// serializes transactions instead.
type tx struct {
	db *gorm.DB
}

func (t *tx) ClockEvent(_ context.Context, id uuid.UUID) (*models.ClockEvent, error) {
	var row clockEventRow
	if err := t.db.Where("id = ?", id.String()).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("clock event %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get clock event: %w", err)
	}
	return rowToClockEvent(row)
}

func (t *tx) OpenClockEvent(_ context.Context, userID, teamID uuid.UUID) (*models.ClockEvent, error) {
	var rows []clockEventRow
	err := t.db.
		Where("user_id = ? AND team_id = ? AND end_time IS NULL", userID.String(), teamID.String()).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get open clock event: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToClockEvent(rows[0])
}

func (t *tx) InsertClockEvent(_ context.Context, ce *models.ClockEvent) error {
	row, err := clockEventToRow(ce)
	if err != nil {
		return err
	}
	if err := t.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert clock event: %w", translate(err))
	}
	return nil
}

func (t *tx) SaveClockEvent(_ context.Context, ce *models.ClockEvent) error {
	row, err := clockEventToRow(ce)
	if err != nil {
		return err
	}
	if err := t.db.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save clock event: %w", translate(err))
	}
	return nil
}

func (t *tx) Ticket(_ context.Context, id uuid.UUID) (*models.Ticket, error) {
	var row ticketRow
	if err := t.db.Where("id = ?", id.String()).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ticket %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return rowToTicket(row)
}

func (t *tx) RunningTicket(_ context.Context, userID uuid.UUID) (*models.Ticket, error) {
	var rows []ticketRow
	err := t.db.
		Where("running_by = ? AND start_timestamp IS NOT NULL", userID.String()).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get running ticket: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToTicket(rows[0])
}

func (t *tx) SaveTicket(_ context.Context, tk *models.Ticket) error {
	row := ticketToRow(tk)
	if err := t.db.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save ticket: %w", translate(err))
	}
	return nil
}

package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/apperr"
	"github.com/mcdev12/timekeep/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// OutboxRecord is a notification row together with its delivery state.
type OutboxRecord struct {
	Notification
	SentAt        *time.Time
	Attempts      int
	NextAttemptAt time.Time
}

const (
	retryBaseDelay = 5 * time.Second
	retryMaxDelay  = time.Hour
)

// retryDelay is how long a row rests after its attempts-th failed delivery.
func retryDelay(attempts int) time.Duration {
	d := retryBaseDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return d
}

const outboxColumns = `id, event_type, recipient_kind, recipient_id, title, body, data, created_at, sent_at, attempts, next_attempt_at`

// OutboxRepository stores queued notifications in notification_outbox.
type OutboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository creates an OutboxRepository on a lib/pq connection.
func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Insert queues n. The table trigger announces it on notification_outbox_events.
func (r *OutboxRepository) Insert(ctx context.Context, n Notification) error {
	data, err := sqlutil.ToNullRawMessage(n.Message.Data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notification_outbox (id, event_type, recipient_kind, recipient_id, title, body, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, string(n.Type), string(n.Recipient.Kind), n.Recipient.ID, n.Message.Title, n.Message.Body, data, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s notification: %w", n.Type, err)
	}
	return nil
}

// FetchByID returns one outbox row, sent or not.
func (r *OutboxRepository) FetchByID(ctx context.Context, id uuid.UUID) (*OutboxRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+outboxColumns+`
		FROM notification_outbox WHERE id = $1`, id)
	rec, err := scanOutbox(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("outbox notification %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox notification: %w", err)
	}
	return rec, nil
}

// DeliverUnsent claims up to limit unsent rows that are due, hands each to
// deliver and marks the delivered ones sent, all in one transaction. A failed
// row has its attempts bumped and rests for retryDelay before it is due again;
// rows with fewer attempts go first. Rows locked by another relay are
// skipped. It returns how many rows were marked sent.
func (r *OutboxRepository) DeliverUnsent(ctx context.Context, limit int, deliver func(Notification) error) (int, error) {
	sent := 0
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT `+outboxColumns+`
			FROM notification_outbox
			WHERE sent_at IS NULL AND next_attempt_at <= now()
			ORDER BY attempts, created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, limit)
		if err != nil {
			return fmt.Errorf("failed to fetch unsent notifications: %w", err)
		}

		var pending []OutboxRecord
		for rows.Next() {
			rec, err := scanOutbox(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan notification: %w", err)
			}
			pending = append(pending, *rec)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, rec := range pending {
			if deliverErr := deliver(rec.Notification); deliverErr != nil {
				delay := retryDelay(rec.Attempts + 1)
				if _, err := tx.ExecContext(ctx, `
					UPDATE notification_outbox
					SET attempts = attempts + 1,
					    next_attempt_at = now() + $2::float8 * interval '1 second',
					    last_error = $3
					WHERE id = $1`, rec.ID, delay.Seconds(), deliverErr.Error()); err != nil {
					return fmt.Errorf("failed to record delivery failure: %w", err)
				}
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE notification_outbox SET sent_at = now() WHERE id = $1`, rec.ID); err != nil {
				return fmt.Errorf("failed to mark notification sent: %w", err)
			}
			sent++
		}
		return nil
	})
	return sent, err
}

// MarkSent marks one row delivered.
func (r *OutboxRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE notification_outbox SET sent_at = now() WHERE id = $1 AND sent_at IS NULL`, id); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOutbox(row scanner) (*OutboxRecord, error) {
	var (
		rec       OutboxRecord
		eventType string
		kind      string
		data      pqtype.NullRawMessage
		sentAt    sql.NullTime
	)
	err := row.Scan(&rec.ID, &eventType, &kind, &rec.Recipient.ID, &rec.Message.Title, &rec.Message.Body,
		&data, &rec.CreatedAt, &sentAt, &rec.Attempts, &rec.NextAttemptAt)
	if err != nil {
		return nil, err
	}
	rec.Type = EventType(eventType)
	rec.Recipient.Kind = RecipientKind(kind)
	rec.SentAt = sqlutil.FromSqlTime(sentAt)
	if err := sqlutil.FromNullRawMessage(data, &rec.Message.Data); err != nil {
		return nil, err
	}
	return &rec, nil
}

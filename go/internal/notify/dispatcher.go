// Package notify delivers accounting events to users and team admins. Delivery
// is fire-and-forget: a failure here is logged and never reaches the mutation
// that triggered it.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Dispatcher accepts notifications. Notify never returns an error; callers
// have already committed their mutation by the time they notify.
type Dispatcher interface {
	Notify(ctx context.Context, eventType EventType, to Recipient, msg Message)
}

// OutboxWriter is what the OutboxDispatcher needs from the outbox repository.
type OutboxWriter interface {
	Insert(ctx context.Context, n Notification) error
}

// OutboxDispatcher queues notifications in the Postgres outbox; the Relay
// publishes them.
type OutboxDispatcher struct {
	outbox OutboxWriter
	now    func() time.Time
}

// NewOutboxDispatcher creates an OutboxDispatcher.
func NewOutboxDispatcher(outbox OutboxWriter, now func() time.Time) *OutboxDispatcher {
	return &OutboxDispatcher{outbox: outbox, now: now}
}

func (d *OutboxDispatcher) Notify(ctx context.Context, eventType EventType, to Recipient, msg Message) {
	n := Notification{
		ID:        uuid.New(),
		Type:      eventType,
		Recipient: to,
		Message:   msg,
		CreatedAt: d.now(),
	}
	if err := d.outbox.Insert(context.WithoutCancel(ctx), n); err != nil {
		log.Error().
			Err(err).
			Str("event_type", string(eventType)).
			Str("recipient_kind", string(to.Kind)).
			Str("recipient_id", to.ID.String()).
			Msg("failed to queue notification")
	}
}

// AsyncDispatcher publishes directly from a background goroutine. It is used
// when no outbox table is available (embedded SQLite mode).
type AsyncDispatcher struct {
	publisher Publisher
	retry     RetryConfig
	now       func() time.Time
}

// NewAsyncDispatcher creates an AsyncDispatcher.
func NewAsyncDispatcher(publisher Publisher, retry RetryConfig, now func() time.Time) *AsyncDispatcher {
	return &AsyncDispatcher{publisher: publisher, retry: retry, now: now}
}

func (d *AsyncDispatcher) Notify(ctx context.Context, eventType EventType, to Recipient, msg Message) {
	n := Notification{
		ID:        uuid.New(),
		Type:      eventType,
		Recipient: to,
		Message:   msg,
		CreatedAt: d.now(),
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := publishWithRetry(ctx, d.publisher, d.retry, n); err != nil {
			log.Error().
				Err(err).
				Str("notification_id", n.ID.String()).
				Str("event_type", string(eventType)).
				Msg("failed to deliver notification")
		}
	}()
}

// RetryConfig bounds publish retries.
type RetryConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultRetryConfig mirrors the relay defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, RetryDelay: 200 * time.Millisecond}
}

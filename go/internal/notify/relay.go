package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type RelayConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to poll for missed rows
	PingInterval     time.Duration
	BatchSize        int
	Retry            RetryConfig
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		NotifyChannel:    "notification_outbox_events",
		FallbackInterval: 30 * time.Second,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
		Retry:            DefaultRetryConfig(),
	}
}

// Relay moves queued notifications from the outbox to the Publisher. It reacts
// to LISTEN/NOTIFY and sweeps on a fallback interval for anything it missed.
type Relay struct {
	repo      *OutboxRepository
	listener  *pq.Listener
	publisher Publisher
	cfg       RelayConfig
}

func NewRelay(db *sql.DB, publisher Publisher, cfg RelayConfig) (*Relay, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("outbox listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	return &Relay{
		repo:      NewOutboxRepository(db),
		listener:  l,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

// Run blocks until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	log.Info().
		Str("channel", r.cfg.NotifyChannel).
		Dur("fallback_interval", r.cfg.FallbackInterval).
		Msg("notification relay started")

	pingTicker := time.NewTicker(r.cfg.PingInterval)
	fallbackTicker := time.NewTicker(r.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	r.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("notification relay shutting down")
			return r.listener.Close()
		case note := <-r.listener.Notify:
			if note == nil {
				// connection was re-established; rows may have been missed
				r.sweep(ctx)
				continue
			}
			if err := r.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to relay notification")
			}
		case <-fallbackTicker.C:
			r.sweep(ctx)
		case <-pingTicker.C:
			if err := r.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping outbox listener")
			}
		}
	}
}

func (r *Relay) handleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid notification id in payload: %w", err)
	}

	rec, err := r.repo.FetchByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.SentAt != nil {
		return nil
	}

	if err := publishWithRetry(ctx, r.publisher, r.cfg.Retry, rec.Notification); err != nil {
		return err
	}
	return r.repo.MarkSent(ctx, id)
}

func (r *Relay) sweep(ctx context.Context) {
	sent, err := r.repo.DeliverUnsent(ctx, r.cfg.BatchSize, func(n Notification) error {
		err := publishWithRetry(ctx, r.publisher, r.cfg.Retry, n)
		if err != nil {
			log.Error().Err(err).Str("notification_id", n.ID.String()).Msg("failed to publish notification")
		}
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to sweep notification outbox")
		return
	}
	if sent > 0 {
		log.Info().Int("sent", sent).Msg("relayed queued notifications")
	}
}

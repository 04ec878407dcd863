package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Publisher hands a notification to the delivery transport.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// LogPublisher only logs; it stands in for a transport in development.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, n Notification) error {
	log.Info().
		Str("notification_id", n.ID.String()).
		Str("event_type", string(n.Type)).
		Str("recipient_kind", string(n.Recipient.Kind)).
		Str("recipient_id", n.Recipient.ID.String()).
		Str("title", n.Message.Title).
		Msg("notification")
	return nil
}

type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	Replicas        int
	DuplicateWindow time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "TIMEKEEP_NOTIFICATIONS",
		SubjectPrefix:   "timekeep.notifications",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          72 * time.Hour,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
	}
}

// JetStreamPublisher publishes notifications to a JetStream stream. Subjects
// are <prefix>.<recipient kind>.<recipient id>, so push gateways can filter
// per user or per team.
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Clock and timer notifications",
		Subjects:    []string{p.config.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    p.config.Replicas,
		Duplicates:  p.config.DuplicateWindow,
	})
	if err != nil {
		return fmt.Errorf("create or update stream: %w", err)
	}
	return nil
}

func (p *JetStreamPublisher) Publish(ctx context.Context, n Notification) error {
	subject := fmt.Sprintf("%s.%s.%s", p.config.SubjectPrefix, n.Recipient.Kind, n.Recipient.ID)

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type":      []string{string(n.Type)},
			"Notification-ID": []string{n.ID.String()},
		},
	},
		jetstream.WithMsgID(n.ID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("notification_id", n.ID.String()).
		Uint64("sequence", ack.Sequence).
		Msg("published notification")
	return nil
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

func publishWithRetry(ctx context.Context, p Publisher, cfg RetryConfig, n Notification) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := p.Publish(ctx, n); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("notification_id", n.ID.String()).
				Msg("failed to publish notification, retrying")
			continue
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

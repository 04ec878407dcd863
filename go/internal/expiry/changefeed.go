package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// ChangeFeedChannel is raised by the clock_events trigger on every write.
const ChangeFeedChannel = "clock_event_changes"

// ChangeFeed nudges the Advisor whenever clock_events change in Postgres,
// including writes made by other instances.
type ChangeFeed struct {
	listener *pq.Listener
	onChange func()
}

func NewChangeFeed(dsn string, onChange func()) (*ChangeFeed, error) {
	l := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Error().Err(err).Msg("clock event change feed")
		}
	})
	if err := l.Listen(ChangeFeedChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}
	return &ChangeFeed{listener: l, onChange: onChange}, nil
}

// Run blocks until ctx is done.
func (f *ChangeFeed) Run(ctx context.Context) error {
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return f.listener.Close()
		case <-f.listener.Notify:
			// a nil notification means the connection was re-established
			f.onChange()
		case <-ping.C:
			if err := f.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping change feed listener")
			}
		}
	}
}

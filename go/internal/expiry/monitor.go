package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/notify"
	"github.com/mcdev12/timekeep/go/internal/store"
	"github.com/rs/zerolog/log"
)

// SessionLister lists clock events; the monitor only asks for open ones.
type SessionLister interface {
	ListClockEvents(ctx context.Context, filter store.ClockEventFilter) ([]models.ClockEvent, error)
}

// Ledger is the close path the monitor shares with user clock-outs.
type Ledger interface {
	ForceStop(ctx context.Context, clockEventID uuid.UUID, reason string) (*models.ClockEvent, bool, error)
}

// PassResult summarises one authoritative pass.
type PassResult struct {
	Evaluated int
	Stopped   int
	Failed    int
}

// Monitor is the authoritative expiry pass. Run executes a pass, then waits
// for the interval (or a Wake) before the next one, so passes never overlap.
type Monitor struct {
	sessions SessionLister
	ledger   Ledger
	notifier notify.Dispatcher
	sink     Sink
	clock    clockwork.Clock
	policy   Policy
	interval time.Duration
	wakeCh   chan struct{}
}

// NewMonitor creates a Monitor. A nil sink discards client events.
func NewMonitor(sessions SessionLister, ledger Ledger, notifier notify.Dispatcher, sink Sink, clock clockwork.Clock, policy Policy, interval time.Duration) *Monitor {
	if sink == nil {
		sink = discardSink{}
	}
	return &Monitor{
		sessions: sessions,
		ledger:   ledger,
		notifier: notifier,
		sink:     sink,
		clock:    clock,
		policy:   policy,
		interval: interval,
		wakeCh:   make(chan struct{}, 1),
	}
}

// Wake asks for a pass as soon as the current one (if any) finishes.
func (m *Monitor) Wake() {
	select {
	case m.wakeCh <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	log.Info().Dur("interval", m.interval).Dur("cap", m.policy.Cap).Msg("expiry monitor started")

	for {
		if res, err := m.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("expiry pass failed")
		} else if res.Stopped > 0 || res.Failed > 0 {
			log.Info().
				Int("evaluated", res.Evaluated).
				Int("stopped", res.Stopped).
				Int("failed", res.Failed).
				Msg("expiry pass complete")
		}

		timer := m.clock.NewTimer(m.interval)
		select {
		case <-ctx.Done():
			stopAndDrainTimer(timer)
			log.Info().Msg("expiry monitor shutting down")
			return nil
		case <-timer.Chan():
		case <-m.wakeCh:
			stopAndDrainTimer(timer)
		}
	}
}

// RunOnce evaluates every open session and force-stops the expired ones. A
// failure on one session is logged and counted; the session stays open and is
// picked up again next pass.
func (m *Monitor) RunOnce(ctx context.Context) (PassResult, error) {
	var res PassResult

	open, err := m.sessions.ListClockEvents(ctx, store.ClockEventFilter{OpenOnly: true})
	if err != nil {
		return res, fmt.Errorf("failed to list open sessions: %w", err)
	}

	now := m.clock.Now()
	for _, ce := range open {
		res.Evaluated++
		v := Evaluate(ce, now, m.policy)
		if !v.Expired {
			continue
		}

		closed, ok, err := m.ledger.ForceStop(ctx, ce.ID, string(v.Reason))
		if err != nil {
			res.Failed++
			log.Error().
				Err(err).
				Str("clock_event_id", ce.ID.String()).
				Str("reason", string(v.Reason)).
				Msg("failed to force stop session")
			continue
		}
		if !ok {
			// closed by the user between the listing and the stop
			continue
		}
		res.Stopped++
		m.announce(ctx, closed, v.Reason)
	}
	return res, nil
}

func (m *Monitor) announce(ctx context.Context, ce *models.ClockEvent, reason Reason) {
	notice := closedNotice(ce, reason, m.policy)
	m.sink.SessionClosed(ce.UserID, notice)

	data := map[string]string{
		"clock_event_id": ce.ID.String(),
		"team_id":        ce.TeamID.String(),
		"reason":         string(reason),
		"duration":       notice.Duration,
	}
	m.notifier.Notify(ctx, notify.EventForceStopped, notify.User(ce.UserID), notify.Message{
		Title: "You were clocked out",
		Body:  notice.Message,
		Data:  data,
	})

	if reason != ReasonCap {
		return
	}
	adminData := map[string]string{"user_id": ce.UserID.String()}
	for k, v := range data {
		adminData[k] = v
	}
	m.notifier.Notify(ctx, notify.EventForceStopped, notify.TeamAdmins(ce.TeamID), notify.Message{
		Title: "Session limit reached",
		Body:  fmt.Sprintf("A team member was clocked out automatically after %s.", notice.Duration),
		Data:  adminData,
	})
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

package expiry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/notify"
	"github.com/mcdev12/timekeep/go/internal/store"
	"github.com/rs/zerolog/log"
)

// Waker is what the advisor needs from the Monitor.
type Waker interface {
	Wake()
}

// Advisor is the fast advisory pass. It never closes a session: an expired
// verdict only wakes the Monitor. It pushes per-session status to clients and
// raises the pre-midnight warning once per session.
type Advisor struct {
	sessions SessionLister
	monitor  Waker
	notifier notify.Dispatcher
	sink     Sink
	clock    clockwork.Clock
	policy   Policy
	tick     time.Duration
	nudgeCh  chan struct{}

	warnedMu sync.Mutex
	warned   map[uuid.UUID]struct{}
}

// NewAdvisor creates an Advisor. A nil sink discards client events.
func NewAdvisor(sessions SessionLister, monitor Waker, notifier notify.Dispatcher, sink Sink, clock clockwork.Clock, policy Policy, tick time.Duration) *Advisor {
	if sink == nil {
		sink = discardSink{}
	}
	return &Advisor{
		sessions: sessions,
		monitor:  monitor,
		notifier: notifier,
		sink:     sink,
		clock:    clock,
		policy:   policy,
		tick:     tick,
		nudgeCh:  make(chan struct{}, 1),
		warned:   make(map[uuid.UUID]struct{}),
	}
}

// Nudge requests a pass now. Nudges arriving during a pass coalesce.
func (a *Advisor) Nudge() {
	select {
	case a.nudgeCh <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (a *Advisor) Run(ctx context.Context) error {
	ticker := a.clock.NewTicker(a.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		case <-a.nudgeCh:
		}
		if err := a.RunOnce(ctx); err != nil {
			log.Debug().Err(err).Msg("advisory pass failed")
		}
	}
}

// RunOnce evaluates every open session once.
func (a *Advisor) RunOnce(ctx context.Context) error {
	open, err := a.sessions.ListClockEvents(ctx, store.ClockEventFilter{OpenOnly: true})
	if err != nil {
		return err
	}

	now := a.clock.Now()
	nowMs := models.Millis(now)
	live := make(map[uuid.UUID]struct{}, len(open))
	expired := false

	for _, ce := range open {
		live[ce.ID] = struct{}{}
		v := Evaluate(ce, now, a.policy)
		if v.Expired {
			expired = true
			continue
		}

		status := Status{
			ClockEventID:        ce.ID,
			TeamID:              ce.TeamID,
			ElapsedSeconds:      ce.Elapsed(nowMs),
			SecondsUntilCap:     int64(v.UntilCap / time.Second),
			SecondsUntilCutover: int64(v.UntilCutover / time.Second),
			Warning:             v.Warn,
		}
		if v.Warn && a.markWarned(ce.ID) {
			a.sink.SessionWarning(ce.UserID, status)
			a.notifier.Notify(ctx, notify.EventMidnightWarning, notify.User(ce.UserID), notify.Message{
				Title: "Clocking out at midnight",
				Body:  "Your session will be clocked out automatically at midnight.",
				Data: map[string]string{
					"clock_event_id": ce.ID.String(),
					"team_id":        ce.TeamID.String(),
				},
			})
		}
		a.sink.SessionStatus(ce.UserID, status)
	}

	a.forgetClosed(live)
	if expired {
		a.monitor.Wake()
	}
	return nil
}

// markWarned records the warning for id and reports whether it is new.
func (a *Advisor) markWarned(id uuid.UUID) bool {
	a.warnedMu.Lock()
	defer a.warnedMu.Unlock()
	if _, ok := a.warned[id]; ok {
		return false
	}
	a.warned[id] = struct{}{}
	return true
}

func (a *Advisor) forgetClosed(live map[uuid.UUID]struct{}) {
	a.warnedMu.Lock()
	defer a.warnedMu.Unlock()
	for id := range a.warned {
		if _, ok := live[id]; !ok {
			delete(a.warned, id)
		}
	}
}

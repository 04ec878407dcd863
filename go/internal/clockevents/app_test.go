package clockevents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/apperr"
	"github.com/mcdev12/timekeep/go/internal/notify"
	"github.com/mcdev12/timekeep/go/internal/store"
	"github.com/mcdev12/timekeep/go/internal/testutil"
)

type fixture struct {
	app      *App
	store    store.Store
	team     testutil.Team
	notifier *testutil.RecordingDispatcher
	clock    interface{ Advance(time.Duration) }
	changes  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := testutil.NewStore(t)
	clock := testutil.NewClock(2025, time.March, 10, 9, 0, 0)
	f := &fixture{
		store:    st,
		team:     testutil.NewTeam(),
		notifier: &testutil.RecordingDispatcher{},
		clock:    clock,
	}
	f.app = NewApp(st, f.team.Dir, f.notifier, clock, testutil.Zone)
	f.app.OnChange(func() { f.changes++ })
	return f
}

func (f *fixture) openSessions(t *testing.T, userID uuid.UUID) []uuid.UUID {
	t.Helper()
	events, err := f.store.ListClockEvents(context.Background(), store.ClockEventFilter{
		UserID:   &userID,
		TeamID:   &f.team.ID,
		OpenOnly: true,
	})
	if err != nil {
		t.Fatalf("list open sessions: %v", err)
	}
	ids := make([]uuid.UUID, len(events))
	for i, ce := range events {
		ids[i] = ce.ID
	}
	return ids
}

func TestStart_OpensSessionAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.As(f.team.Member)

	ce, err := f.app.Start(ctx, f.team.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !ce.IsOpen() || ce.UserID != f.team.Member || ce.TeamID != f.team.ID {
		t.Errorf("unexpected session %+v", ce)
	}

	in := f.notifier.Of(notify.EventClockIn)
	if len(in) != 1 {
		t.Fatalf("clock-in notifications = %d, want 1", len(in))
	}
	if in[0].Msg.Body != "You clocked in at 09:00." {
		t.Errorf("body = %q", in[0].Msg.Body)
	}
	if in[0].To != notify.User(f.team.Member) {
		t.Errorf("recipient = %+v", in[0].To)
	}
	if f.changes != 1 {
		t.Errorf("change hooks = %d, want 1", f.changes)
	}
}

func TestStart_TwiceKeepsOneOpenSession(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.As(f.team.Member)

	first, err := f.app.Start(ctx, f.team.ID)
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	f.clock.Advance(5 * time.Minute)
	second, err := f.app.Start(ctx, f.team.ID)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}

	open := f.openSessions(t, f.team.Member)
	if len(open) != 1 || open[0] != second.ID {
		t.Fatalf("open sessions = %v, want only %s", open, second.ID)
	}

	stray, err := f.store.GetClockEvent(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("GetClockEvent: %v", err)
	}
	if stray.IsOpen() || stray.AccumulatedTime != 300 {
		t.Errorf("stray session = open:%v accumulated:%d, want closed with 300", stray.IsOpen(), stray.AccumulatedTime)
	}
}

func TestStartStop_ConcurrentCallsKeepOneOpenSession(t *testing.T) {
	st := testutil.NewStore(t)
	team := testutil.NewTeam()
	app := NewApp(st, team.Dir, &testutil.RecordingDispatcher{}, testutil.NewClock(2025, time.March, 10, 9, 0, 0), testutil.Zone)
	ctx := testutil.As(team.Member)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%3 == 2 {
				_, _, err = app.Stop(ctx, team.ID)
			} else {
				_, err = app.Start(ctx, team.ID)
			}
			// the unique index turning a loser away is also acceptable
			if err != nil && !errors.Is(err, apperr.ErrConflict) {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	open, err := st.ListClockEvents(context.Background(), store.ClockEventFilter{
		UserID:   &team.Member,
		TeamID:   &team.ID,
		OpenOnly: true,
	})
	if err != nil {
		t.Fatalf("ListClockEvents: %v", err)
	}
	if len(open) > 1 {
		t.Fatalf("open sessions = %d, want at most 1", len(open))
	}
}

func TestStop_ClosesSession(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.As(f.team.Member)

	if _, err := f.app.Start(ctx, f.team.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.clock.Advance(15*time.Minute + 400*time.Millisecond)

	closed, ok, err := f.app.Stop(ctx, f.team.ID)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !ok {
		t.Fatal("Stop reported no change")
	}
	if closed.AccumulatedTime != 900 {
		t.Errorf("accumulated = %d, want 900", closed.AccumulatedTime)
	}

	out := f.notifier.Of(notify.EventClockOut)
	if len(out) != 1 || out[0].Msg.Body != "You worked 15m 00s." {
		t.Errorf("clock-out notifications = %+v", out)
	}
}

func TestStop_IsNoOpWithoutOpenSession(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.As(f.team.Member)

	if _, err := f.app.Start(ctx, f.team.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.clock.Advance(time.Hour)
	first, _, err := f.app.Stop(ctx, f.team.ID)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}

	f.clock.Advance(time.Hour)
	closed, ok, err := f.app.Stop(ctx, f.team.ID)
	if err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if ok || closed != nil {
		t.Errorf("second Stop = %v, %v; want nil, false", closed, ok)
	}

	again, err := f.store.GetClockEvent(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("GetClockEvent: %v", err)
	}
	if *again.EndTime != *first.EndTime || again.AccumulatedTime != first.AccumulatedTime {
		t.Errorf("closed session changed: %+v -> %+v", first, again)
	}
	if n := len(f.notifier.Of(notify.EventClockOut)); n != 1 {
		t.Errorf("clock-out notifications = %d, want 1", n)
	}
}

func TestStart_RequiresMembership(t *testing.T) {
	f := newFixture(t)

	_, err := f.app.Start(context.Background(), f.team.ID)
	if !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("no actor: err = %v, want not-authorized", err)
	}

	_, err = f.app.Start(testutil.As(uuid.New()), f.team.ID)
	if !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("outsider: err = %v, want not-authorized", err)
	}
	if f.notifier.Len() != 0 {
		t.Errorf("notifications sent on rejected start: %d", f.notifier.Len())
	}
}

func TestForceStop(t *testing.T) {
	f := newFixture(t)
	ce, err := f.app.Start(testutil.As(f.team.Member), f.team.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.clock.Advance(2 * time.Hour)

	closed, ok, err := f.app.ForceStop(context.Background(), ce.ID, "cap")
	if err != nil || !ok {
		t.Fatalf("ForceStop = %v, %v", ok, err)
	}
	if closed.AccumulatedTime != 7200 {
		t.Errorf("accumulated = %d, want 7200", closed.AccumulatedTime)
	}

	_, ok, err = f.app.ForceStop(context.Background(), ce.ID, "cap")
	if err != nil || ok {
		t.Errorf("second ForceStop = %v, %v; want false, nil", ok, err)
	}

	_, _, err = f.app.ForceStop(context.Background(), uuid.New(), "cap")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing session: err = %v, want not-found", err)
	}
}

func TestQuery(t *testing.T) {
	f := newFixture(t)
	member := testutil.As(f.team.Member)

	for range 3 {
		if _, err := f.app.Start(member, f.team.ID); err != nil {
			t.Fatalf("Start: %v", err)
		}
		f.clock.Advance(time.Hour)
		if _, _, err := f.app.Stop(member, f.team.ID); err != nil {
			t.Fatalf("Stop: %v", err)
		}
		f.clock.Advance(time.Hour)
	}

	t.Run("own history newest first", func(t *testing.T) {
		events, err := f.app.Query(member, f.team.Member, nil)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("events = %d, want 3", len(events))
		}
		if events[0].StartTimestamp <= events[2].StartTimestamp {
			t.Error("events are not newest first")
		}
	})

	t.Run("admin reads member", func(t *testing.T) {
		events, err := f.app.Query(testutil.As(f.team.Admin), f.team.Member, &f.team.ID)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(events) != 3 {
			t.Errorf("events = %d, want 3", len(events))
		}
	})

	t.Run("member cannot read peer", func(t *testing.T) {
		_, err := f.app.Query(testutil.As(f.team.Other), f.team.Member, &f.team.ID)
		if !errors.Is(err, apperr.ErrNotAuthorized) {
			t.Errorf("err = %v, want not-authorized", err)
		}
	})
}

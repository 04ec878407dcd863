package tickets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeep/go/internal/access"
	"github.com/mcdev12/timekeep/go/internal/apperr"
	"github.com/mcdev12/timekeep/go/internal/clockevents"
	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/store/sqlite"
	"github.com/mcdev12/timekeep/go/internal/testutil"
)

type fixture struct {
	tracker *App
	ledger  *clockevents.App
	store   *sqlite.Store
	team    testutil.Team
	clock   *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := testutil.NewStore(t)
	clock := testutil.NewClock(2025, time.March, 10, 9, 0, 0)
	team := testutil.NewTeam()
	return &fixture{
		tracker: NewApp(st, team.Dir, clock),
		ledger:  clockevents.NewApp(st, team.Dir, &testutil.RecordingDispatcher{}, clock, testutil.Zone),
		store:   st,
		team:    team,
		clock:   clock,
	}
}

func (f *fixture) createTicket(t *testing.T, title string) *models.Ticket {
	t.Helper()
	tk, err := f.tracker.CreateTicket(testutil.As(f.team.Member), CreateTicketRequest{TeamID: f.team.ID, Title: title})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	return tk
}

func (f *fixture) clockIn(t *testing.T, userID uuid.UUID) *models.ClockEvent {
	t.Helper()
	ce, err := f.ledger.Start(testutil.As(userID), f.team.ID)
	if err != nil {
		t.Fatalf("clock in: %v", err)
	}
	return ce
}

func (f *fixture) session(t *testing.T, id uuid.UUID) *models.ClockEvent {
	t.Helper()
	ce, err := f.store.GetClockEvent(context.Background(), id)
	if err != nil {
		t.Fatalf("GetClockEvent: %v", err)
	}
	return ce
}

func (f *fixture) ticket(t *testing.T, id uuid.UUID) *models.Ticket {
	t.Helper()
	tk, err := f.store.GetTicket(context.Background(), id)
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	return tk
}

func TestCreateTicket_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.tracker.CreateTicket(testutil.As(f.team.Member), CreateTicketRequest{TeamID: f.team.ID, Title: "   "})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank title: err = %v, want validation", err)
	}

	_, err = f.tracker.CreateTicket(testutil.As(uuid.New()), CreateTicketRequest{TeamID: f.team.ID, Title: "Fix login"})
	if !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("outsider: err = %v, want not-authorized", err)
	}
}

func TestListTickets_ByTitle(t *testing.T) {
	f := newFixture(t)
	f.createTicket(t, "b-ticket")
	f.createTicket(t, "a-ticket")

	got, err := f.tracker.ListTickets(testutil.As(f.team.Other), f.team.ID)
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(got) != 2 || got[0].Title != "a-ticket" {
		t.Errorf("tickets = %+v", got)
	}
}

func TestTicketInSession_ClockOutTotals(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.As(f.team.Member)
	ticketA := f.createTicket(t, "A")
	t0 := models.Millis(f.clock.Now())

	ce := f.clockIn(t, f.team.Member)
	f.clock.Advance(60 * time.Second)
	if _, err := f.tracker.StartTicket(ctx, ticketA.ID, &ce.ID); err != nil {
		t.Fatalf("StartTicket: %v", err)
	}
	f.clock.Advance(540 * time.Second)
	if _, err := f.tracker.StopTicket(ctx, ticketA.ID, &ce.ID); err != nil {
		t.Fatalf("StopTicket: %v", err)
	}
	f.clock.Advance(300 * time.Second)
	if _, _, err := f.ledger.Stop(ctx, f.team.ID); err != nil {
		t.Fatalf("clock out: %v", err)
	}

	closed := f.session(t, ce.ID)
	if closed.AccumulatedTime != 900 {
		t.Errorf("session accumulated = %d, want 900", closed.AccumulatedTime)
	}
	if got := f.ticket(t, ticketA.ID).AccumulatedTime; got != 540 {
		t.Errorf("ticket accumulated = %d, want 540", got)
	}

	entry := closed.Entry(ticketA.ID)
	if entry == nil {
		t.Fatal("no entry for ticket A")
	}
	if len(entry.Sessions) != 1 {
		t.Fatalf("segments = %d, want 1", len(entry.Sessions))
	}
	seg := entry.Sessions[0]
	if seg.StartTimestamp != t0+60_000 || *seg.EndTimestamp != t0+600_000 {
		t.Errorf("segment = [%d, %d], want [%d, %d]", seg.StartTimestamp, *seg.EndTimestamp, t0+60_000, t0+600_000)
	}
}

func TestStopRestartCycles_SegmentsSumToAccumulated(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.As(f.team.Member)
	tk := f.createTicket(t, "cycles")
	ce := f.clockIn(t, f.team.Member)

	runs := []time.Duration{
		90 * time.Second,
		3*time.Minute + 700*time.Millisecond,
		47 * time.Second,
		12*time.Minute + 300*time.Millisecond,
	}
	for _, d := range runs {
		if _, err := f.tracker.StartTicket(ctx, tk.ID, &ce.ID); err != nil {
			t.Fatalf("StartTicket: %v", err)
		}
		f.clock.Advance(d)
		if _, err := f.tracker.StopTicket(ctx, tk.ID, &ce.ID); err != nil {
			t.Fatalf("StopTicket: %v", err)
		}
		f.clock.Advance(30 * time.Second)
	}

	entry := f.session(t, ce.ID).Entry(tk.ID)
	if len(entry.Sessions) != len(runs) {
		t.Fatalf("segments = %d, want %d", len(entry.Sessions), len(runs))
	}
	var sum int64
	for _, seg := range entry.Sessions {
		sum += models.SecondsBetween(seg.StartTimestamp, *seg.EndTimestamp)
	}
	if sum != entry.AccumulatedTime {
		t.Errorf("segment sum = %d, entry accumulated = %d", sum, entry.AccumulatedTime)
	}
}

func TestStartTicket_SeedsEntryOncePerSession(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.As(f.team.Member)
	tk := f.createTicket(t, "seeded")

	// Bank 120s on the ticket outside any session.
	if _, err := f.tracker.StartTicket(ctx, tk.ID, nil); err != nil {
		t.Fatalf("StartTicket: %v", err)
	}
	f.clock.Advance(120 * time.Second)
	if _, err := f.tracker.StopTicket(ctx, tk.ID, nil); err != nil {
		t.Fatalf("StopTicket: %v", err)
	}

	ce := f.clockIn(t, f.team.Member)
	res, err := f.tracker.StartTicket(ctx, tk.ID, &ce.ID)
	if err != nil {
		t.Fatalf("StartTicket in session: %v", err)
	}
	if got := res.ClockEvent.Entry(tk.ID).AccumulatedTime; got != 120 {
		t.Errorf("entry seed = %d, want 120", got)
	}
	if res.ClockEvent.AccumulatedTime != 120 {
		t.Errorf("session accumulated = %d, want 120", res.ClockEvent.AccumulatedTime)
	}

	f.clock.Advance(10 * time.Second)
	if _, err := f.tracker.StopTicket(ctx, tk.ID, &ce.ID); err != nil {
		t.Fatalf("StopTicket: %v", err)
	}
	if _, err := f.tracker.StartTicket(ctx, tk.ID, &ce.ID); err != nil {
		t.Fatalf("restart: %v", err)
	}

	after := f.session(t, ce.ID)
	if after.AccumulatedTime != 120 {
		t.Errorf("session accumulated after restart = %d, want 120", after.AccumulatedTime)
	}
	if got := after.Entry(tk.ID).AccumulatedTime; got != 130 {
		t.Errorf("entry accumulated = %d, want 130", got)
	}
}

func TestStartTicket_SecondTicketConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.As(f.team.Member)
	a := f.createTicket(t, "A")
	b := f.createTicket(t, "B")

	if _, err := f.tracker.StartTicket(ctx, a.ID, nil); err != nil {
		t.Fatalf("StartTicket A: %v", err)
	}
	_, err := f.tracker.StartTicket(ctx, b.ID, nil)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("StartTicket B: err = %v, want conflict", err)
	}
	if f.ticket(t, b.ID).IsRunning() {
		t.Error("ticket B should not be running")
	}

	res, err := f.tracker.StartTicket(ctx, a.ID, nil)
	if err != nil {
		t.Fatalf("restart A: %v", err)
	}
	if res.Changed {
		t.Error("starting a running ticket should be a no-op")
	}
}

func TestStartTicket_TimedByAnotherUser(t *testing.T) {
	f := newFixture(t)
	tk := f.createTicket(t, "shared")

	if _, err := f.tracker.StartTicket(testutil.As(f.team.Member), tk.ID, nil); err != nil {
		t.Fatalf("StartTicket: %v", err)
	}

	_, err := f.tracker.StartTicket(testutil.As(f.team.Other), tk.ID, nil)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("start: err = %v, want conflict", err)
	}
	_, err = f.tracker.StopTicket(testutil.As(f.team.Other), tk.ID, nil)
	if !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("stop: err = %v, want not-authorized", err)
	}
}

func TestStartTicket_SessionChecks(t *testing.T) {
	f := newFixture(t)
	tk := f.createTicket(t, "A")
	ce := f.clockIn(t, f.team.Member)

	_, err := f.tracker.StartTicket(testutil.As(f.team.Other), tk.ID, &ce.ID)
	if !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Errorf("foreign session: err = %v, want not-authorized", err)
	}

	if _, _, err := f.ledger.Stop(testutil.As(f.team.Member), f.team.ID); err != nil {
		t.Fatalf("clock out: %v", err)
	}
	_, err = f.tracker.StartTicket(testutil.As(f.team.Member), tk.ID, &ce.ID)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("closed session: err = %v, want validation", err)
	}

	missing := uuid.New()
	_, err = f.tracker.StartTicket(testutil.As(f.team.Member), missing, nil)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing ticket: err = %v, want not-found", err)
	}
}

func TestStopTicket_NotRunningIsNoOp(t *testing.T) {
	f := newFixture(t)
	tk := f.createTicket(t, "idle")

	res, err := f.tracker.StopTicket(testutil.As(f.team.Member), tk.ID, nil)
	if err != nil {
		t.Fatalf("StopTicket: %v", err)
	}
	if res.Changed {
		t.Error("stopping an idle ticket should not change anything")
	}
}

func TestSwitchTicket(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.As(f.team.Member)
	a := f.createTicket(t, "A")
	b := f.createTicket(t, "B")
	ce := f.clockIn(t, f.team.Member)

	if _, err := f.tracker.StartTicket(ctx, a.ID, &ce.ID); err != nil {
		t.Fatalf("StartTicket: %v", err)
	}
	f.clock.Advance(5 * time.Minute)

	res, err := f.tracker.SwitchTicket(ctx, b.ID, &ce.ID)
	if err != nil {
		t.Fatalf("SwitchTicket: %v", err)
	}
	if res.Previous == nil || res.Previous.ID != a.ID || res.Previous.AccumulatedTime != 300 {
		t.Errorf("previous = %+v", res.Previous)
	}
	if res.Ticket.ID != b.ID || !res.Ticket.IsRunning() {
		t.Errorf("started = %+v", res.Ticket)
	}

	after := f.session(t, ce.ID)
	if after.Entry(a.ID).IsRunning() || !after.Entry(b.ID).IsRunning() {
		t.Error("entries were not switched")
	}
}

func TestClockOut_StopsRunningTicket(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.As(f.team.Member)
	tk := f.createTicket(t, "A")
	ce := f.clockIn(t, f.team.Member)

	if _, err := f.tracker.StartTicket(ctx, tk.ID, &ce.ID); err != nil {
		t.Fatalf("StartTicket: %v", err)
	}
	f.clock.Advance(20 * time.Minute)
	if _, _, err := f.ledger.Stop(ctx, f.team.ID); err != nil {
		t.Fatalf("clock out: %v", err)
	}

	got := f.ticket(t, tk.ID)
	if got.IsRunning() || got.AccumulatedTime != 1200 {
		t.Errorf("ticket after clock out = %+v", got)
	}
	if f.session(t, ce.ID).Entry(tk.ID).IsRunning() {
		t.Error("entry still running after clock out")
	}
}

// newCrossTeamFixture is newFixture with the member also on a second team.
func newCrossTeamFixture(t *testing.T) (*fixture, uuid.UUID) {
	t.Helper()
	f := newFixture(t)
	second := uuid.New()
	dir := access.NewStaticDirectory([]access.TeamEntry{
		{ID: f.team.ID, Name: "platform", Admins: []uuid.UUID{f.team.Admin}, Members: []uuid.UUID{f.team.Member, f.team.Other}},
		{ID: second, Name: "billing", Members: []uuid.UUID{f.team.Member}},
	})
	f.team.Dir = dir
	f.tracker = NewApp(f.store, dir, f.clock)
	f.ledger = clockevents.NewApp(f.store, dir, &testutil.RecordingDispatcher{}, f.clock, testutil.Zone)
	return f, second
}

func TestStartTicket_OneRunningTicketAcrossTeams(t *testing.T) {
	f, second := newCrossTeamFixture(t)
	ctx := testutil.As(f.team.Member)
	a := f.createTicket(t, "A")
	b, err := f.tracker.CreateTicket(ctx, CreateTicketRequest{TeamID: second, Title: "B"})
	if err != nil {
		t.Fatalf("CreateTicket B: %v", err)
	}

	if _, err := f.tracker.StartTicket(ctx, a.ID, nil); err != nil {
		t.Fatalf("StartTicket A: %v", err)
	}
	_, err = f.tracker.StartTicket(ctx, b.ID, nil)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("StartTicket B: err = %v, want conflict", err)
	}
	if f.ticket(t, b.ID).IsRunning() {
		t.Error("ticket B should not be running")
	}
}

func TestSwitchTicket_AcrossTeamsStopsPreviousEntry(t *testing.T) {
	f, second := newCrossTeamFixture(t)
	ctx := testutil.As(f.team.Member)
	x := f.createTicket(t, "X")
	y, err := f.tracker.CreateTicket(ctx, CreateTicketRequest{TeamID: second, Title: "Y"})
	if err != nil {
		t.Fatalf("CreateTicket Y: %v", err)
	}

	s1 := f.clockIn(t, f.team.Member)
	s2, err := f.ledger.Start(ctx, second)
	if err != nil {
		t.Fatalf("clock in to second team: %v", err)
	}
	if _, err := f.tracker.StartTicket(ctx, x.ID, &s1.ID); err != nil {
		t.Fatalf("StartTicket X: %v", err)
	}
	f.clock.Advance(10 * time.Minute)

	if _, err := f.tracker.SwitchTicket(ctx, y.ID, &s2.ID); err != nil {
		t.Fatalf("SwitchTicket: %v", err)
	}
	f.clock.Advance(50 * time.Minute)
	if _, _, err := f.ledger.Stop(ctx, f.team.ID); err != nil {
		t.Fatalf("clock out of first team: %v", err)
	}

	if got := f.ticket(t, x.ID).AccumulatedTime; got != 600 {
		t.Errorf("ticket X accumulated = %d, want 600", got)
	}
	entry := f.session(t, s1.ID).Entry(x.ID)
	if entry.AccumulatedTime != 600 || len(entry.Sessions) != 1 {
		t.Errorf("entry X = %d over %d segments, want 600 over 1", entry.AccumulatedTime, len(entry.Sessions))
	}
	if !f.session(t, s2.ID).Entry(y.ID).IsRunning() {
		t.Error("entry Y should be running in the second session")
	}
}

func TestSwitchTicket_WithoutSessionStopsPreviousEntry(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.As(f.team.Member)
	x := f.createTicket(t, "X")
	y := f.createTicket(t, "Y")
	ce := f.clockIn(t, f.team.Member)

	if _, err := f.tracker.StartTicket(ctx, x.ID, &ce.ID); err != nil {
		t.Fatalf("StartTicket X: %v", err)
	}
	f.clock.Advance(10 * time.Minute)

	if _, err := f.tracker.SwitchTicket(ctx, y.ID, nil); err != nil {
		t.Fatalf("SwitchTicket: %v", err)
	}
	f.clock.Advance(50 * time.Minute)

	if f.ticket(t, x.ID).IsRunning() {
		t.Error("ticket X still running")
	}
	entry := f.session(t, ce.ID).Entry(x.ID)
	if entry.IsRunning() || entry.AccumulatedTime != 600 {
		t.Errorf("entry X running=%v accumulated=%d, want stopped at 600", entry.IsRunning(), entry.AccumulatedTime)
	}
	if !f.ticket(t, y.ID).IsRunning() {
		t.Error("ticket Y should be running")
	}
}

func TestSwitchTicket_FailedStopSkipsStart(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.As(f.team.Member)
	a := f.createTicket(t, "A")
	b := f.createTicket(t, "B")
	own := f.clockIn(t, f.team.Member)
	foreign := f.clockIn(t, f.team.Other)

	if _, err := f.tracker.StartTicket(ctx, a.ID, &own.ID); err != nil {
		t.Fatalf("StartTicket A: %v", err)
	}
	f.clock.Advance(time.Minute)

	_, err := f.tracker.SwitchTicket(ctx, b.ID, &foreign.ID)
	if !errors.Is(err, apperr.ErrNotAuthorized) {
		t.Fatalf("SwitchTicket: err = %v, want not-authorized", err)
	}
	if f.ticket(t, b.ID).IsRunning() {
		t.Error("ticket B started after the stop failed")
	}
	if !f.ticket(t, a.ID).IsRunning() {
		t.Error("ticket A should still be running")
	}
}

package clockevents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/rpcutil"
	timekeepv1 "github.com/mcdev12/timekeep/go/internal/timekeepv1"
)

type serviceFixture struct {
	*fixture
	start *connect.Client[timekeepv1.ClockEventStartRequest, timekeepv1.ClockEventStartResponse]
	stop  *connect.Client[timekeepv1.ClockEventStopRequest, timekeepv1.ClockEventStopResponse]
	list  *connect.Client[timekeepv1.ListClockEventsRequest, timekeepv1.ListClockEventsResponse]
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := newFixture(t)

	mux := http.NewServeMux()
	NewService(f.app).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	opt := connect.WithCodec(rpcutil.JSONCodec{})
	return &serviceFixture{
		fixture: f,
		start:   connect.NewClient[timekeepv1.ClockEventStartRequest, timekeepv1.ClockEventStartResponse](srv.Client(), srv.URL+timekeepv1.ClockEventStartProcedure, opt),
		stop:    connect.NewClient[timekeepv1.ClockEventStopRequest, timekeepv1.ClockEventStopResponse](srv.Client(), srv.URL+timekeepv1.ClockEventStopProcedure, opt),
		list:    connect.NewClient[timekeepv1.ListClockEventsRequest, timekeepv1.ListClockEventsResponse](srv.Client(), srv.URL+timekeepv1.ListClockEventsProcedure, opt),
	}
}

func request[T any](actor uuid.UUID, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if actor != uuid.Nil {
		req.Header().Set(rpcutil.ActorHeader, actor.String())
	}
	return req
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %v", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("code = %v, want %v (err: %v)", got, want, err)
	}
}

func TestService_StartStop(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	started, err := f.start.CallUnary(ctx, request(f.team.Member, &timekeepv1.ClockEventStartRequest{TeamId: f.team.ID.String()}))
	if err != nil {
		t.Fatalf("ClockEventStart: %v", err)
	}
	ce := started.Msg.ClockEvent
	if ce == nil || ce.EndTime != nil || ce.UserId != f.team.Member.String() {
		t.Fatalf("started = %+v", ce)
	}

	f.clock.Advance(30 * time.Minute)
	stopped, err := f.stop.CallUnary(ctx, request(f.team.Member, &timekeepv1.ClockEventStopRequest{TeamId: f.team.ID.String()}))
	if err != nil {
		t.Fatalf("ClockEventStop: %v", err)
	}
	if !stopped.Msg.Stopped || stopped.Msg.ClockEvent.AccumulatedTime != 1800 {
		t.Errorf("stopped = %+v", stopped.Msg)
	}

	again, err := f.stop.CallUnary(ctx, request(f.team.Member, &timekeepv1.ClockEventStopRequest{TeamId: f.team.ID.String()}))
	if err != nil {
		t.Fatalf("second ClockEventStop: %v", err)
	}
	if again.Msg.Stopped || again.Msg.ClockEvent != nil {
		t.Errorf("second stop = %+v, want no-op", again.Msg)
	}

	listed, err := f.list.CallUnary(ctx, request(f.team.Member, &timekeepv1.ListClockEventsRequest{UserId: f.team.Member.String()}))
	if err != nil {
		t.Fatalf("ListClockEvents: %v", err)
	}
	if len(listed.Msg.ClockEvents) != 1 || listed.Msg.ClockEvents[0].Id != ce.Id {
		t.Errorf("listed = %+v", listed.Msg.ClockEvents)
	}
}

func TestService_ErrorCodes(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	team := f.team.ID.String()

	_, err := f.start.CallUnary(ctx, request(uuid.Nil, &timekeepv1.ClockEventStartRequest{TeamId: team}))
	assertCode(t, err, connect.CodeUnauthenticated)

	_, err = f.start.CallUnary(ctx, request(uuid.New(), &timekeepv1.ClockEventStartRequest{TeamId: team}))
	assertCode(t, err, connect.CodePermissionDenied)

	_, err = f.start.CallUnary(ctx, request(f.team.Member, &timekeepv1.ClockEventStartRequest{TeamId: "not-a-uuid"}))
	assertCode(t, err, connect.CodeInvalidArgument)

	_, err = f.list.CallUnary(ctx, request(f.team.Other, &timekeepv1.ListClockEventsRequest{UserId: f.team.Member.String(), TeamId: team}))
	assertCode(t, err, connect.CodePermissionDenied)
}

func TestService_ActorHeaderMustBeUUID(t *testing.T) {
	f := newServiceFixture(t)
	req := connect.NewRequest(&timekeepv1.ClockEventStartRequest{TeamId: f.team.ID.String()})
	req.Header().Set(rpcutil.ActorHeader, "alice")

	_, err := f.start.CallUnary(context.Background(), req)
	assertCode(t, err, connect.CodeUnauthenticated)
}

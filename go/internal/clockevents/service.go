package clockevents

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/rpcutil"
	timekeepv1 "github.com/mcdev12/timekeep/go/internal/timekeepv1"
)

// LedgerApp defines what the service layer needs from the ledger
type LedgerApp interface {
	Start(ctx context.Context, teamID uuid.UUID) (*models.ClockEvent, error)
	Stop(ctx context.Context, teamID uuid.UUID) (*models.ClockEvent, bool, error)
	Query(ctx context.Context, userID uuid.UUID, teamID *uuid.UUID) ([]models.ClockEvent, error)
}

// Service exposes the ledger procedures of timekeep.v1.TimeService
type Service struct {
	app LedgerApp
}

// NewService creates a new ledger service
func NewService(app LedgerApp) *Service {
	return &Service{app: app}
}

// Register mounts the ledger procedures on mux.
func (s *Service) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = rpcutil.HandlerOptions(opts...)
	mux.Handle(timekeepv1.ClockEventStartProcedure, connect.NewUnaryHandler(timekeepv1.ClockEventStartProcedure, s.ClockEventStart, opts...))
	mux.Handle(timekeepv1.ClockEventStopProcedure, connect.NewUnaryHandler(timekeepv1.ClockEventStopProcedure, s.ClockEventStop, opts...))
	mux.Handle(timekeepv1.ListClockEventsProcedure, connect.NewUnaryHandler(timekeepv1.ListClockEventsProcedure, s.ListClockEvents, opts...))
}

// ClockEventStart clocks the caller in
func (s *Service) ClockEventStart(ctx context.Context, req *connect.Request[timekeepv1.ClockEventStartRequest]) (*connect.Response[timekeepv1.ClockEventStartResponse], error) {
	teamID, err := rpcutil.ParseID("teamId", req.Msg.TeamId)
	if err != nil {
		return nil, err
	}

	ce, err := s.app.Start(ctx, teamID)
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.ClockEventStartProcedure, err)
	}

	return connect.NewResponse(&timekeepv1.ClockEventStartResponse{
		ClockEvent: timekeepv1.FromClockEvent(ce),
	}), nil
}

// ClockEventStop clocks the caller out; a missing open session is not an error
func (s *Service) ClockEventStop(ctx context.Context, req *connect.Request[timekeepv1.ClockEventStopRequest]) (*connect.Response[timekeepv1.ClockEventStopResponse], error) {
	teamID, err := rpcutil.ParseID("teamId", req.Msg.TeamId)
	if err != nil {
		return nil, err
	}

	ce, stopped, err := s.app.Stop(ctx, teamID)
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.ClockEventStopProcedure, err)
	}

	return connect.NewResponse(&timekeepv1.ClockEventStopResponse{
		ClockEvent: timekeepv1.FromClockEvent(ce),
		Stopped:    stopped,
	}), nil
}

// ListClockEvents returns a user's sessions, newest first
func (s *Service) ListClockEvents(ctx context.Context, req *connect.Request[timekeepv1.ListClockEventsRequest]) (*connect.Response[timekeepv1.ListClockEventsResponse], error) {
	userID, err := rpcutil.ParseID("userId", req.Msg.UserId)
	if err != nil {
		return nil, err
	}
	teamID, err := rpcutil.ParseOptionalID("teamId", req.Msg.TeamId)
	if err != nil {
		return nil, err
	}

	events, err := s.app.Query(ctx, userID, teamID)
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.ListClockEventsProcedure, err)
	}

	return connect.NewResponse(&timekeepv1.ListClockEventsResponse{
		ClockEvents: timekeepv1.FromClockEvents(events),
	}), nil
}

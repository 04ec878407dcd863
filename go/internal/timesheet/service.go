package timesheet

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/rpcutil"
	timekeepv1 "github.com/mcdev12/timekeep/go/internal/timekeepv1"
)

// AggregatorApp defines what the service layer needs from the timesheet app
type AggregatorApp interface {
	ComputeSessionData(ctx context.Context, userID uuid.UUID, teamID *uuid.UUID, r DateRange) ([]SessionRow, error)
	TotalHours(ctx context.Context, userID uuid.UUID, teamID *uuid.UUID, r DateRange) (*Totals, error)
	EditSession(ctx context.Context, req EditRequest) (*models.ClockEvent, error)
}

// Service exposes the timesheet procedures of timekeep.v1.TimeService
type Service struct {
	app AggregatorApp
}

// NewService creates a new timesheet service
func NewService(app AggregatorApp) *Service {
	return &Service{app: app}
}

// Register mounts the timesheet procedures on mux.
func (s *Service) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = rpcutil.HandlerOptions(opts...)
	mux.Handle(timekeepv1.GetSessionDataProcedure, connect.NewUnaryHandler(timekeepv1.GetSessionDataProcedure, s.GetSessionData, opts...))
	mux.Handle(timekeepv1.GetTotalHoursProcedure, connect.NewUnaryHandler(timekeepv1.GetTotalHoursProcedure, s.GetTotalHours, opts...))
	mux.Handle(timekeepv1.UpdateClockEventTimesProcedure, connect.NewUnaryHandler(timekeepv1.UpdateClockEventTimesProcedure, s.UpdateClockEventTimes, opts...))
}

// GetSessionData returns timesheet rows for a user
func (s *Service) GetSessionData(ctx context.Context, req *connect.Request[timekeepv1.GetSessionDataRequest]) (*connect.Response[timekeepv1.GetSessionDataResponse], error) {
	userID, err := rpcutil.ParseID("userId", req.Msg.UserId)
	if err != nil {
		return nil, err
	}
	teamID, err := rpcutil.ParseOptionalID("teamId", req.Msg.TeamId)
	if err != nil {
		return nil, err
	}

	rows, err := s.app.ComputeSessionData(ctx, userID, teamID, DateRange{From: req.Msg.Range.From, To: req.Msg.Range.To})
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.GetSessionDataProcedure, err)
	}

	out := make([]timekeepv1.SessionRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, sessionRowToWire(r))
	}
	return connect.NewResponse(&timekeepv1.GetSessionDataResponse{Sessions: out}), nil
}

// GetTotalHours returns the floored total for a user
func (s *Service) GetTotalHours(ctx context.Context, req *connect.Request[timekeepv1.GetTotalHoursRequest]) (*connect.Response[timekeepv1.GetTotalHoursResponse], error) {
	userID, err := rpcutil.ParseID("userId", req.Msg.UserId)
	if err != nil {
		return nil, err
	}
	teamID, err := rpcutil.ParseOptionalID("teamId", req.Msg.TeamId)
	if err != nil {
		return nil, err
	}

	totals, err := s.app.TotalHours(ctx, userID, teamID, DateRange{From: req.Msg.Range.From, To: req.Msg.Range.To})
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.GetTotalHoursProcedure, err)
	}

	return connect.NewResponse(&timekeepv1.GetTotalHoursResponse{
		TotalMinutes: totals.Minutes,
		Hours:        totals.Hours,
	}), nil
}

// UpdateClockEventTimes applies an admin boundary edit
func (s *Service) UpdateClockEventTimes(ctx context.Context, req *connect.Request[timekeepv1.UpdateClockEventTimesRequest]) (*connect.Response[timekeepv1.UpdateClockEventTimesResponse], error) {
	id, err := rpcutil.ParseID("clockEventId", req.Msg.ClockEventId)
	if err != nil {
		return nil, err
	}

	ce, err := s.app.EditSession(ctx, EditRequest{
		ClockEventID:   id,
		StartTimestamp: req.Msg.StartTimestamp,
		EndTimestamp:   req.Msg.EndTimestamp,
	})
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.UpdateClockEventTimesProcedure, err)
	}

	return connect.NewResponse(&timekeepv1.UpdateClockEventTimesResponse{
		ClockEvent: timekeepv1.FromClockEvent(ce),
	}), nil
}

func sessionRowToWire(r SessionRow) timekeepv1.SessionRow {
	out := timekeepv1.SessionRow{
		ClockEventId:    r.ClockEventID.String(),
		Date:            r.Date,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		Duration:        r.Duration,
		TicketsWorkedOn: make([]timekeepv1.TicketWorkedOn, 0, len(r.TicketsWorkedOn)),
	}
	for _, t := range r.TicketsWorkedOn {
		out.TicketsWorkedOn = append(out.TicketsWorkedOn, timekeepv1.TicketWorkedOn{
			TicketId:        t.TicketID.String(),
			Title:           t.Title,
			Url:             t.URL,
			DurationSeconds: t.DurationSeconds,
		})
	}
	return out
}

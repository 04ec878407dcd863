package tickets

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/models"
	"github.com/mcdev12/timekeep/go/internal/rpcutil"
	timekeepv1 "github.com/mcdev12/timekeep/go/internal/timekeepv1"
)

// TrackerApp defines what the service layer needs from the ticket tracker
type TrackerApp interface {
	CreateTicket(ctx context.Context, req CreateTicketRequest) (*models.Ticket, error)
	GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	ListTickets(ctx context.Context, teamID uuid.UUID) ([]models.Ticket, error)
	StartTicket(ctx context.Context, ticketID uuid.UUID, sessionID *uuid.UUID) (*TimerResult, error)
	StopTicket(ctx context.Context, ticketID uuid.UUID, sessionID *uuid.UUID) (*TimerResult, error)
	SwitchTicket(ctx context.Context, newTicketID uuid.UUID, sessionID *uuid.UUID) (*SwitchResult, error)
}

// Service exposes the ticket timer procedures of timekeep.v1.TimeService.
// Request fields named "now" are ignored; the server clock decides.
type Service struct {
	app TrackerApp
}

// NewService creates a new ticket service
func NewService(app TrackerApp) *Service {
	return &Service{app: app}
}

// Register mounts the ticket procedures on mux.
func (s *Service) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = rpcutil.HandlerOptions(opts...)
	mux.Handle(timekeepv1.ClockEventAddTicketProcedure, connect.NewUnaryHandler(timekeepv1.ClockEventAddTicketProcedure, s.ClockEventAddTicket, opts...))
	mux.Handle(timekeepv1.ClockEventStopTicketProcedure, connect.NewUnaryHandler(timekeepv1.ClockEventStopTicketProcedure, s.ClockEventStopTicket, opts...))
	mux.Handle(timekeepv1.UpdateTicketStartProcedure, connect.NewUnaryHandler(timekeepv1.UpdateTicketStartProcedure, s.UpdateTicketStart, opts...))
	mux.Handle(timekeepv1.UpdateTicketStopProcedure, connect.NewUnaryHandler(timekeepv1.UpdateTicketStopProcedure, s.UpdateTicketStop, opts...))
	mux.Handle(timekeepv1.SwitchTicketProcedure, connect.NewUnaryHandler(timekeepv1.SwitchTicketProcedure, s.SwitchTicket, opts...))
	mux.Handle(timekeepv1.CreateTicketProcedure, connect.NewUnaryHandler(timekeepv1.CreateTicketProcedure, s.CreateTicket, opts...))
	mux.Handle(timekeepv1.GetTicketProcedure, connect.NewUnaryHandler(timekeepv1.GetTicketProcedure, s.GetTicket, opts...))
	mux.Handle(timekeepv1.ListTicketsProcedure, connect.NewUnaryHandler(timekeepv1.ListTicketsProcedure, s.ListTickets, opts...))
}

// ClockEventAddTicket starts a ticket inside a session
func (s *Service) ClockEventAddTicket(ctx context.Context, req *connect.Request[timekeepv1.ClockEventAddTicketRequest]) (*connect.Response[timekeepv1.ClockEventAddTicketResponse], error) {
	sessionID, err := rpcutil.ParseID("clockEventId", req.Msg.ClockEventId)
	if err != nil {
		return nil, err
	}
	ticketID, err := rpcutil.ParseID("ticketId", req.Msg.TicketId)
	if err != nil {
		return nil, err
	}

	res, err := s.app.StartTicket(ctx, ticketID, &sessionID)
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.ClockEventAddTicketProcedure, err)
	}

	return connect.NewResponse(&timekeepv1.ClockEventAddTicketResponse{
		Ticket:     timekeepv1.FromTicket(res.Ticket),
		ClockEvent: timekeepv1.FromClockEvent(res.ClockEvent),
	}), nil
}

// ClockEventStopTicket stops a ticket and its entry inside a session
func (s *Service) ClockEventStopTicket(ctx context.Context, req *connect.Request[timekeepv1.ClockEventStopTicketRequest]) (*connect.Response[timekeepv1.ClockEventStopTicketResponse], error) {
	sessionID, err := rpcutil.ParseID("clockEventId", req.Msg.ClockEventId)
	if err != nil {
		return nil, err
	}
	ticketID, err := rpcutil.ParseID("ticketId", req.Msg.TicketId)
	if err != nil {
		return nil, err
	}

	res, err := s.app.StopTicket(ctx, ticketID, &sessionID)
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.ClockEventStopTicketProcedure, err)
	}

	return connect.NewResponse(&timekeepv1.ClockEventStopTicketResponse{
		Ticket:     timekeepv1.FromTicket(res.Ticket),
		ClockEvent: timekeepv1.FromClockEvent(res.ClockEvent),
		Stopped:    res.Changed,
	}), nil
}

// UpdateTicketStart starts a ticket outside any session
func (s *Service) UpdateTicketStart(ctx context.Context, req *connect.Request[timekeepv1.UpdateTicketStartRequest]) (*connect.Response[timekeepv1.UpdateTicketStartResponse], error) {
	ticketID, err := rpcutil.ParseID("ticketId", req.Msg.TicketId)
	if err != nil {
		return nil, err
	}

	res, err := s.app.StartTicket(ctx, ticketID, nil)
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.UpdateTicketStartProcedure, err)
	}

	return connect.NewResponse(&timekeepv1.UpdateTicketStartResponse{
		Ticket: timekeepv1.FromTicket(res.Ticket),
	}), nil
}

// UpdateTicketStop stops a ticket outside any session
func (s *Service) UpdateTicketStop(ctx context.Context, req *connect.Request[timekeepv1.UpdateTicketStopRequest]) (*connect.Response[timekeepv1.UpdateTicketStopResponse], error) {
	ticketID, err := rpcutil.ParseID("ticketId", req.Msg.TicketId)
	if err != nil {
		return nil, err
	}

	res, err := s.app.StopTicket(ctx, ticketID, nil)
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.UpdateTicketStopProcedure, err)
	}

	return connect.NewResponse(&timekeepv1.UpdateTicketStopResponse{
		Ticket:  timekeepv1.FromTicket(res.Ticket),
		Stopped: res.Changed,
	}), nil
}

// SwitchTicket stops the caller's running ticket and starts another
func (s *Service) SwitchTicket(ctx context.Context, req *connect.Request[timekeepv1.SwitchTicketRequest]) (*connect.Response[timekeepv1.SwitchTicketResponse], error) {
	ticketID, err := rpcutil.ParseID("ticketId", req.Msg.TicketId)
	if err != nil {
		return nil, err
	}
	sessionID, err := rpcutil.ParseOptionalID("clockEventId", req.Msg.ClockEventId)
	if err != nil {
		return nil, err
	}

	res, err := s.app.SwitchTicket(ctx, ticketID, sessionID)
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.SwitchTicketProcedure, err)
	}

	return connect.NewResponse(&timekeepv1.SwitchTicketResponse{
		Previous:   timekeepv1.FromTicket(res.Previous),
		Ticket:     timekeepv1.FromTicket(res.Ticket),
		ClockEvent: timekeepv1.FromClockEvent(res.ClockEvent),
	}), nil
}

// CreateTicket creates a ticket
func (s *Service) CreateTicket(ctx context.Context, req *connect.Request[timekeepv1.CreateTicketRequest]) (*connect.Response[timekeepv1.CreateTicketResponse], error) {
	teamID, err := rpcutil.ParseID("teamId", req.Msg.TeamId)
	if err != nil {
		return nil, err
	}

	t, err := s.app.CreateTicket(ctx, CreateTicketRequest{TeamID: teamID, Title: req.Msg.Title})
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.CreateTicketProcedure, err)
	}

	return connect.NewResponse(&timekeepv1.CreateTicketResponse{Ticket: timekeepv1.FromTicket(t)}), nil
}

// GetTicket retrieves a ticket by ID
func (s *Service) GetTicket(ctx context.Context, req *connect.Request[timekeepv1.GetTicketRequest]) (*connect.Response[timekeepv1.GetTicketResponse], error) {
	ticketID, err := rpcutil.ParseID("ticketId", req.Msg.TicketId)
	if err != nil {
		return nil, err
	}

	t, err := s.app.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.GetTicketProcedure, err)
	}

	return connect.NewResponse(&timekeepv1.GetTicketResponse{Ticket: timekeepv1.FromTicket(t)}), nil
}

// ListTickets lists a team's tickets
func (s *Service) ListTickets(ctx context.Context, req *connect.Request[timekeepv1.ListTicketsRequest]) (*connect.Response[timekeepv1.ListTicketsResponse], error) {
	teamID, err := rpcutil.ParseID("teamId", req.Msg.TeamId)
	if err != nil {
		return nil, err
	}

	tickets, err := s.app.ListTickets(ctx, teamID)
	if err != nil {
		return nil, rpcutil.ToConnectError(timekeepv1.ListTicketsProcedure, err)
	}

	out := make([]*timekeepv1.Ticket, 0, len(tickets))
	for i := range tickets {
		out = append(out, timekeepv1.FromTicket(&tickets[i]))
	}
	return connect.NewResponse(&timekeepv1.ListTicketsResponse{Tickets: out}), nil
}

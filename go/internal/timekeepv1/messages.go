// Package timekeepv1 holds the wire messages of the timekeep.v1.TimeService
// Connect API. Messages are plain structs encoded with the JSON codec from
// rpcutil; field names follow the camelCase JSON mapping clients expect.
package timekeepv1

const ServiceName = "timekeep.v1.TimeService"

const (
	ClockEventStartProcedure       = "/" + ServiceName + "/ClockEventStart"
	ClockEventStopProcedure        = "/" + ServiceName + "/ClockEventStop"
	ListClockEventsProcedure       = "/" + ServiceName + "/ListClockEvents"
	ClockEventAddTicketProcedure   = "/" + ServiceName + "/ClockEventAddTicket"
	ClockEventStopTicketProcedure  = "/" + ServiceName + "/ClockEventStopTicket"
	UpdateTicketStartProcedure     = "/" + ServiceName + "/UpdateTicketStart"
	UpdateTicketStopProcedure      = "/" + ServiceName + "/UpdateTicketStop"
	SwitchTicketProcedure          = "/" + ServiceName + "/SwitchTicket"
	CreateTicketProcedure          = "/" + ServiceName + "/CreateTicket"
	GetTicketProcedure             = "/" + ServiceName + "/GetTicket"
	ListTicketsProcedure           = "/" + ServiceName + "/ListTickets"
	UpdateClockEventTimesProcedure = "/" + ServiceName + "/UpdateClockEventTimes"
	GetSessionDataProcedure        = "/" + ServiceName + "/GetSessionData"
	GetTotalHoursProcedure         = "/" + ServiceName + "/GetTotalHours"
)

type EntrySegment struct {
	StartTimestamp int64  `json:"startTimestamp"`
	EndTimestamp   *int64 `json:"endTimestamp"`
}

type TicketTimeEntry struct {
	TicketId        string         `json:"ticketId"`
	StartTimestamp  *int64         `json:"startTimestamp,omitempty"`
	AccumulatedTime int64          `json:"accumulatedTime"`
	Sessions        []EntrySegment `json:"sessions"`
}

type ClockEvent struct {
	Id              string            `json:"id"`
	UserId          string            `json:"userId"`
	TeamId          string            `json:"teamId"`
	StartTimestamp  int64             `json:"startTimestamp"`
	EndTime         *int64            `json:"endTime"`
	AccumulatedTime int64             `json:"accumulatedTime"`
	Tickets         []TicketTimeEntry `json:"tickets"`
	EditedAt        *int64            `json:"editedAt,omitempty"`
	EditedBy        string            `json:"editedBy,omitempty"`
}

type Ticket struct {
	Id              string `json:"id"`
	TeamId          string `json:"teamId"`
	Title           string `json:"title"`
	AccumulatedTime int64  `json:"accumulatedTime"`
	StartTimestamp  *int64 `json:"startTimestamp,omitempty"`
	RunningBy       string `json:"runningBy,omitempty"`
}

type ClockEventStartRequest struct {
	TeamId string `json:"teamId"`
}

type ClockEventStartResponse struct {
	ClockEvent *ClockEvent `json:"clockEvent"`
}

type ClockEventStopRequest struct {
	TeamId string `json:"teamId"`
}

// ClockEventStopResponse carries Stopped=false when there was no open session.
type ClockEventStopResponse struct {
	ClockEvent *ClockEvent `json:"clockEvent,omitempty"`
	Stopped    bool        `json:"stopped"`
}

type ListClockEventsRequest struct {
	UserId string `json:"userId"`
	TeamId string `json:"teamId,omitempty"`
}

type ListClockEventsResponse struct {
	ClockEvents []*ClockEvent `json:"clockEvents"`
}

// ClockEventAddTicketRequest starts a ticket inside a session. Now is
// accepted from older clients and ignored; the server clock decides.
type ClockEventAddTicketRequest struct {
	ClockEventId string `json:"clockEventId"`
	TicketId     string `json:"ticketId"`
	Now          *int64 `json:"now,omitempty"`
}

type ClockEventAddTicketResponse struct {
	Ticket     *Ticket     `json:"ticket"`
	ClockEvent *ClockEvent `json:"clockEvent"`
}

type ClockEventStopTicketRequest struct {
	ClockEventId string `json:"clockEventId"`
	TicketId     string `json:"ticketId"`
	Now          *int64 `json:"now,omitempty"`
}

type ClockEventStopTicketResponse struct {
	Ticket     *Ticket     `json:"ticket"`
	ClockEvent *ClockEvent `json:"clockEvent"`
	Stopped    bool        `json:"stopped"`
}

type UpdateTicketStartRequest struct {
	TicketId string `json:"ticketId"`
	Now      *int64 `json:"now,omitempty"`
}

type UpdateTicketStartResponse struct {
	Ticket *Ticket `json:"ticket"`
}

type UpdateTicketStopRequest struct {
	TicketId string `json:"ticketId"`
	Now      *int64 `json:"now,omitempty"`
}

type UpdateTicketStopResponse struct {
	Ticket  *Ticket `json:"ticket"`
	Stopped bool    `json:"stopped"`
}

type SwitchTicketRequest struct {
	TicketId     string `json:"ticketId"`
	ClockEventId string `json:"clockEventId,omitempty"`
}

type SwitchTicketResponse struct {
	Previous   *Ticket     `json:"previous,omitempty"`
	Ticket     *Ticket     `json:"ticket"`
	ClockEvent *ClockEvent `json:"clockEvent,omitempty"`
}

type CreateTicketRequest struct {
	TeamId string `json:"teamId"`
	Title  string `json:"title"`
}

type CreateTicketResponse struct {
	Ticket *Ticket `json:"ticket"`
}

type GetTicketRequest struct {
	TicketId string `json:"ticketId"`
}

type GetTicketResponse struct {
	Ticket *Ticket `json:"ticket"`
}

type ListTicketsRequest struct {
	TeamId string `json:"teamId"`
}

type ListTicketsResponse struct {
	Tickets []*Ticket `json:"tickets"`
}

type UpdateClockEventTimesRequest struct {
	ClockEventId   string `json:"clockEventId"`
	StartTimestamp *int64 `json:"startTimestamp,omitempty"`
	EndTimestamp   *int64 `json:"endTimestamp,omitempty"`
}

type UpdateClockEventTimesResponse struct {
	ClockEvent *ClockEvent `json:"clockEvent"`
}

// DateRange bounds are epoch milliseconds; From is inclusive, To exclusive.
type DateRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type GetSessionDataRequest struct {
	UserId string    `json:"userId"`
	TeamId string    `json:"teamId,omitempty"`
	Range  DateRange `json:"range"`
}

type TicketWorkedOn struct {
	TicketId        string `json:"ticketId"`
	Title           string `json:"title"`
	Url             string `json:"url"`
	DurationSeconds int64  `json:"durationSeconds"`
}

type SessionRow struct {
	ClockEventId    string           `json:"clockEventId"`
	Date            string           `json:"date"`
	StartTime       int64            `json:"startTime"`
	EndTime         *int64           `json:"endTime"`
	Duration        *int64           `json:"duration"`
	TicketsWorkedOn []TicketWorkedOn `json:"ticketsWorkedOn"`
}

type GetSessionDataResponse struct {
	Sessions []SessionRow `json:"sessions"`
}

type GetTotalHoursRequest struct {
	UserId string    `json:"userId"`
	TeamId string    `json:"teamId,omitempty"`
	Range  DateRange `json:"range"`
}

type GetTotalHoursResponse struct {
	TotalMinutes int64   `json:"totalMinutes"`
	Hours        float64 `json:"hours"`
}

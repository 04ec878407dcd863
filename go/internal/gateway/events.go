package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/timekeep/go/internal/expiry"
)

// ClockEvent is the envelope of every message pushed on /ws/clock.
type ClockEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of clock event
type EventType string

const (
	EventTypeSessionStatus  EventType = "SessionStatus"
	EventTypeSessionWarning EventType = "SessionWarning"
	EventTypeSessionClosed  EventType = "SessionClosed"
)

// ParseEventPayload decodes the payload of a known event type.
func ParseEventPayload(event *ClockEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeSessionStatus, EventTypeSessionWarning:
		var payload expiry.Status
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionClosed:
		var payload expiry.Closed
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil
	}
}

func newEvent(t EventType, at time.Time, payload any) (*ClockEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &ClockEvent{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: at,
		Data:      data,
	}, nil
}

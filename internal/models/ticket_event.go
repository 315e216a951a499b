package models

import (
	"time"
)

type TicketEventType string

const (
	TicketIssued    TicketEventType = "ticket.issued"
	TicketCheckedIn TicketEventType = "ticket.checked_in"
)

// TicketEvent is published on Kafka and streamed to SSE subscribers of the event.
type TicketEvent struct {
	Type       TicketEventType `json:"type"`
	TicketID   string          `json:"ticket_id"`
	EventID    string          `json:"event_id"`
	UserID     string          `json:"user_id"`
	OperatorID string          `json:"operator_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewTicketEvent(typ TicketEventType, t Ticket, operatorID string, at time.Time) TicketEvent {
	return TicketEvent{
		Type:       typ,
		TicketID:   t.TicketID,
		EventID:    t.EventID,
		UserID:     t.UserID,
		OperatorID: operatorID,
		OccurredAt: at,
	}
}

package checkin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"campus-events/internal/logger"
	"campus-events/internal/models"
	"campus-events/internal/tickets/db"
)

const (
	MsgInvalidCode      = "Invalid ticket code."
	MsgWrongEvent       = "Ticket is not valid for this event."
	MsgOrganizerOnly    = "Organizer access required for this event."
	MsgAlreadyCheckedIn = "Ticket already checked in."
	MsgCheckedIn        = "Checked in successfully."
	MsgFailed           = "Validation failed"
)

type TicketStore interface {
	GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error)
	// MarkCheckedIn must only succeed if the ticket is not yet checked in and
	// return db.ErrAlreadyCheckedIn otherwise.
	MarkCheckedIn(ctx context.Context, ticketID string, at time.Time) error
}

type EventPublisher interface {
	PublishTicketEvent(ctx context.Context, event models.TicketEvent) error
}

type Validator struct {
	Tickets   TicketStore
	Access    *EventAccess
	Publisher EventPublisher
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewValidator(tickets TicketStore, access *EventAccess, publisher EventPublisher, log *logger.Logger) *Validator {
	if log == nil {
		log = logger.NewWithWriter(io.Discard)
	}
	return &Validator{
		Tickets:   tickets,
		Access:    access,
		Publisher: publisher,
		Logger:    log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// ValidateAndCheckIn redeems the ticket identified by code at eventID on
// behalf of operatorID. Rejections come back as a result with a nil error.
// A non-nil error means the outcome is unknown and the result is marked
// retryable.
func (v *Validator) ValidateAndCheckIn(ctx context.Context, code, operatorID, eventID string) (models.CheckInResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return v.reject(eventID, operatorID, MsgInvalidCode), nil
	}

	ticket, err := v.Tickets.GetTicketByCode(ctx, code)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return v.reject(eventID, operatorID, MsgInvalidCode), nil
		}
		return v.fail(eventID, operatorID, fmt.Errorf("lookup ticket: %w", err))
	}

	if ticket.EventID != eventID {
		return v.reject(eventID, operatorID, MsgWrongEvent), nil
	}

	allowed, err := v.Access.CanManage(ctx, operatorID, eventID)
	if err != nil {
		return v.fail(eventID, operatorID, fmt.Errorf("authorize operator: %w", err))
	}
	if !allowed {
		v.Logger.LogSecurity("CHECKIN_DENIED", fmt.Sprintf("operator %s on event %s", operatorID, eventID))
		return v.reject(eventID, operatorID, MsgOrganizerOnly), nil
	}

	if ticket.IsCheckedIn {
		return v.reject(eventID, operatorID, MsgAlreadyCheckedIn), nil
	}

	now := v.Now()
	if err := v.Tickets.MarkCheckedIn(ctx, ticket.TicketID, now); err != nil {
		if errors.Is(err, db.ErrAlreadyCheckedIn) {
			return v.reject(eventID, operatorID, MsgAlreadyCheckedIn), nil
		}
		return v.fail(eventID, operatorID, fmt.Errorf("mark checked in: %w", err))
	}

	v.Logger.LogCheckIn(eventID, operatorID, "accepted ticket "+ticket.TicketID)

	if v.Publisher != nil {
		ticket.IsCheckedIn = true
		ticket.CheckedInAt = &now
		evt := models.NewTicketEvent(models.TicketCheckedIn, *ticket, operatorID, now)
		if err := v.Publisher.PublishTicketEvent(ctx, evt); err != nil {
			v.Logger.Warn("CHECKIN", fmt.Sprintf("Failed to publish check-in for %s: %v", ticket.TicketID, err))
		}
	}

	return models.CheckInResult{OK: true, Message: MsgCheckedIn}, nil
}

func (v *Validator) reject(eventID, operatorID, msg string) models.CheckInResult {
	v.Logger.LogCheckIn(eventID, operatorID, msg)
	return models.CheckInResult{OK: false, Message: msg}
}

func (v *Validator) fail(eventID, operatorID string, err error) (models.CheckInResult, error) {
	v.Logger.Error("CHECKIN", fmt.Sprintf("[%s] operator=%s - %v", eventID, operatorID, err))
	return models.CheckInResult{OK: false, Message: MsgFailed, Retryable: true}, err
}

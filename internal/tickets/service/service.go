package tickets

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

	"github.com/google/uuid"
)

var (
	ErrDuplicateRegistration = errors.New("already registered for this event")
	ErrCapacityExceeded      = errors.New("event is full")
	ErrEventNotFound         = errors.New("event not found")
	ErrEventClosed           = errors.New("event is not open for registration")
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrNotTicketOwner        = errors.New("ticket belongs to another user")
)

type TicketDBLayer interface {
	CreateRegistrationWithTicket(ctx context.Context, reg *models.Registration, ticket *models.Ticket) error
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	GetTicketByID(ctx context.Context, ticketID string) (*models.Ticket, error)
	GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error)
	GetTicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error)
	GetTotalTicketsCount(ctx context.Context) (int, error)
}

// CodeGenerator issues ticket codes and renders them for display.
type CodeGenerator interface {
	NewCode() string
	EncodePNG(code string) ([]byte, error)
}

type EventPublisher interface {
	PublishTicketEvent(ctx context.Context, event models.TicketEvent) error
}

type TicketService struct {
	DB        TicketDBLayer
	Codes     CodeGenerator
	Publisher EventPublisher
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewTicketService(store TicketDBLayer, codes CodeGenerator, publisher EventPublisher, log *logger.Logger) *TicketService {
	return &TicketService{
		DB:        store,
		Codes:     codes,
		Publisher: publisher,
		Logger:    log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateTicket registers userID for eventID and issues its ticket.
func (s *TicketService) CreateTicket(ctx context.Context, eventID, userID string) (*models.Ticket, error) {
	event, err := s.DB.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}
	if event.Status != models.EventStatusPublished {
		return nil, ErrEventClosed
	}

	now := s.Now()
	reg := &models.Registration{
		RegistrationID: uuid.NewString(),
		EventID:        eventID,
		UserID:         userID,
		CreatedAt:      now,
	}
	ticket := &models.Ticket{
		TicketID:       uuid.NewString(),
		RegistrationID: reg.RegistrationID,
		EventID:        eventID,
		UserID:         userID,
		QRCode:         s.Codes.NewCode(),
		CreatedAt:      now,
	}

	if err := s.DB.CreateRegistrationWithTicket(ctx, reg, ticket); err != nil {
		switch {
		case errors.Is(err, db.ErrAlreadyRegistered):
			return nil, ErrDuplicateRegistration
		case errors.Is(err, db.ErrEventFull):
			return nil, ErrCapacityExceeded
		case errors.Is(err, db.ErrNotFound):
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	s.log().LogTicket("ISSUE", ticket.TicketID, fmt.Sprintf("event=%s user=%s", eventID, userID))

	if s.Publisher != nil {
		evt := models.NewTicketEvent(models.TicketIssued, *ticket, "", now)
		if err := s.Publisher.PublishTicketEvent(ctx, evt); err != nil {
			s.log().Warn("TICKETS", fmt.Sprintf("Failed to publish issue event for %s: %v", ticket.TicketID, err))
		}
	}

	return ticket, nil
}

// GetUserTickets returns the user's tickets, newest first. A user without
// tickets gets an empty slice.
func (s *TicketService) GetUserTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	tickets, err := s.DB.GetTicketsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets for user %s: %w", userID, err)
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	return tickets, nil
}

func (s *TicketService) GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("lookup ticket by code: %w", err)
	}
	return ticket, nil
}

func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("ticket %s: %w", ticketID, err)
	}
	return ticket, nil
}

// TicketQR renders the ticket's code as a PNG for its owner.
func (s *TicketService) TicketQR(ctx context.Context, ticketID, requesterID string) ([]byte, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != requesterID {
		s.log().LogSecurity("QR_DENIED", fmt.Sprintf("user %s requested ticket %s", requesterID, ticketID))
		return nil, ErrNotTicketOwner
	}
	png, err := s.Codes.EncodePNG(ticket.QRCode)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR: %w", err)
	}
	return png, nil
}

func (s *TicketService) GetTotalTicketsCount(ctx context.Context) (int, error) {
	return s.DB.GetTotalTicketsCount(ctx)
}

var discardLogger = logger.NewWithWriter(io.Discard)

func (s *TicketService) log() *logger.Logger {
	if s.Logger == nil {
		return discardLogger
	}
	return s.Logger
}

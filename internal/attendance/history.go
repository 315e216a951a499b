package attendance

import (
	"context"
	"fmt"
	"io"
	"time"

	"campus-events/internal/logger"
	"campus-events/internal/models"
)

// Source is the read side of the ticket store the history is built from.
type Source interface {
	GetRegistrationsByEvent(ctx context.Context, eventID string) ([]models.Registration, error)
	GetTicketsByEvent(ctx context.Context, eventID string) ([]models.Ticket, error)
	GetProfiles(ctx context.Context, userIDs []string) ([]models.Profile, error)
}

type History struct {
	EventID     string                 `json:"event_id"`
	Rows        []models.AttendanceRow `json:"rows"`
	Warnings    []string               `json:"warnings,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`
}

type Service struct {
	Source Source
	Logger *logger.Logger
	Now    func() time.Time
}

func NewService(source Source, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewWithWriter(io.Discard)
	}
	return &Service{
		Source: source,
		Logger: log,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// History loads and reconciles the attendance of eventID. A failing source
// query is replaced by an empty collection and reported in Warnings; it never
// fails the whole view.
func (s *Service) History(ctx context.Context, eventID string) History {
	h := History{EventID: eventID, GeneratedAt: s.Now()}

	regs, err := s.Source.GetRegistrationsByEvent(ctx, eventID)
	if err != nil {
		regs = nil
		h.Warnings = append(h.Warnings, "Registrations could not be loaded; showing tickets only.")
		s.Logger.Warn("ATTENDANCE", fmt.Sprintf("[%s] registrations query failed: %v", eventID, err))
	}

	tickets, err := s.Source.GetTicketsByEvent(ctx, eventID)
	if err != nil {
		tickets = nil
		h.Warnings = append(h.Warnings, "Tickets could not be loaded; check-in status is unavailable.")
		s.Logger.Warn("ATTENDANCE", fmt.Sprintf("[%s] tickets query failed: %v", eventID, err))
	}

	profiles := map[string]models.Profile{}
	if ids := userIDs(regs, tickets); len(ids) > 0 {
		list, err := s.Source.GetProfiles(ctx, ids)
		if err != nil {
			h.Warnings = append(h.Warnings, "Attendee profiles could not be loaded; names and emails are missing.")
			s.Logger.Warn("ATTENDANCE", fmt.Sprintf("[%s] profiles query failed: %v", eventID, err))
		}
		for _, p := range list {
			profiles[p.UserID] = p
		}
	}

	h.Rows = Reconcile(regs, tickets, profiles, h.GeneratedAt)
	s.Logger.Debug("ATTENDANCE", fmt.Sprintf("[%s] %d rows, %d warnings", eventID, len(h.Rows), len(h.Warnings)))
	return h
}

func userIDs(regs []models.Registration, tickets []models.Ticket) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, r := range regs {
		add(r.UserID)
	}
	for _, t := range tickets {
		add(t.UserID)
	}
	return ids
}

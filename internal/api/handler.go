package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"campus-events/internal/attendance"
	"campus-events/internal/auth"
	"campus-events/internal/logger"
	"campus-events/internal/models"
	"campus-events/internal/session"
	tickets "campus-events/internal/tickets/service"
	"campus-events/internal/utils"

	"github.com/go-chi/chi/v5"
)

type TicketService interface {
	CreateTicket(ctx context.Context, eventID, userID string) (*models.Ticket, error)
	GetUserTickets(ctx context.Context, userID string) ([]models.Ticket, error)
	TicketQR(ctx context.Context, ticketID, requesterID string) ([]byte, error)
	GetTotalTicketsCount(ctx context.Context) (int, error)
}

type CheckInValidator interface {
	ValidateAndCheckIn(ctx context.Context, code, operatorID, eventID string) (models.CheckInResult, error)
}

type AttendanceService interface {
	History(ctx context.Context, eventID string) attendance.History
}

type AccessChecker interface {
	CanManage(ctx context.Context, userID, eventID string) (bool, error)
}

type EventSubscriber interface {
	SubscribeToEvent(ctx context.Context, eventID string) <-chan models.TicketEvent
}

type SessionStore interface {
	Open(ctx context.Context, userID string) error
	Close(ctx context.Context, userID string) error
	RecordScan(ctx context.Context, operatorID string, rec session.ScanRecord) error
	RecentScans(ctx context.Context, operatorID string) ([]session.ScanRecord, error)
	ConfirmPayment(ctx context.Context, userID string, p session.PaymentConfirmation) error
	PaymentFor(ctx context.Context, userID, eventID string) (*session.PaymentConfirmation, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	Tickets    TicketService
	Validator  CheckInValidator
	Attendance AttendanceService
	Access     AccessChecker
	Events     EventSubscriber
	Sessions   SessionStore
	Checks     map[string]HealthCheck
	Logger     *logger.Logger
	Heartbeat  time.Duration
	Now        func() time.Time
}

func NewHandler(log *logger.Logger) *Handler {
	return &Handler{
		Logger:    log,
		Checks:    map[string]HealthCheck{},
		Heartbeat: 25 * time.Second,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// RegisterPublicRoutes mounts the /api routes served without a bearer token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/tickets/count", h.GetTotalTicketsCount)
}

// RegisterRoutes mounts the authenticated routes. r must already run the
// auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/events/{eventId}/rsvp", h.RSVP)
	r.Get("/me/tickets", h.GetMyTickets)
	r.Get("/tickets/{ticketId}/qr", h.GetTicketQR)

	r.Post("/events/{eventId}/checkin", h.CheckIn)
	r.Get("/events/{eventId}/checkins/stream", h.StreamCheckIns)
	r.Get("/events/{eventId}/attendance", h.GetAttendance)
	r.Get("/events/{eventId}/attendance.csv", h.ExportAttendance)

	r.Route("/session", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Delete("/", h.CloseSession)
		r.Get("/scans", h.GetRecentScans)
		r.Get("/payments/{eventId}", h.GetPayment)
		r.Put("/payments/{eventId}", h.PutPayment)
	})
}

func sendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	utils.WriteJSON(w, status, data)
}

func sendError(w http.ResponseWriter, status int, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	sendJSONResponse(w, status, utils.ErrorResponse(message, detail))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		sendJSONResponse(w, http.StatusServiceUnavailable, utils.APIResponse{
			Success:   false,
			Message:   "Unhealthy",
			Data:      status,
			Timestamp: h.Now(),
		})
		return
	}
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("OK", status))
}

func (h *Handler) GetTotalTicketsCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.Tickets.GetTotalTicketsCount(r.Context())
	if err != nil {
		h.Logger.Error("TICKETS", "Error retrieving ticket count: "+err.Error())
		sendError(w, http.StatusInternalServerError, "Error retrieving ticket count", nil)
		return
	}
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("Ticket count", map[string]int{"total_count": count}))
}

// RSVP registers the caller for the event and returns the issued ticket.
func (h *Handler) RSVP(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	eventID := chi.URLParam(r, "eventId")

	ticket, err := h.Tickets.CreateTicket(r.Context(), eventID, userID)
	if err != nil {
		switch {
		case errors.Is(err, tickets.ErrEventNotFound):
			sendError(w, http.StatusNotFound, "Event not found", nil)
		case errors.Is(err, tickets.ErrDuplicateRegistration):
			sendError(w, http.StatusConflict, "You are already registered for this event", nil)
		case errors.Is(err, tickets.ErrCapacityExceeded):
			sendError(w, http.StatusConflict, "This event is full", nil)
		case errors.Is(err, tickets.ErrEventClosed):
			sendError(w, http.StatusConflict, "This event is not open for registration", nil)
		default:
			h.Logger.Error("TICKETS", fmt.Sprintf("RSVP failed for user %s on event %s: %v", userID, eventID, err))
			sendError(w, http.StatusInternalServerError, "Failed to register", nil)
		}
		return
	}

	sendJSONResponse(w, http.StatusCreated, utils.SuccessResponse("Registered", ticket))
}

func (h *Handler) GetMyTickets(w http.ResponseWriter, r *http.Request) {
	list, err := h.Tickets.GetUserTickets(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.Logger.Error("TICKETS", "Error listing tickets: "+err.Error())
		sendError(w, http.StatusInternalServerError, "Failed to load tickets", nil)
		return
	}
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("Tickets", list))
}

func (h *Handler) GetTicketQR(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketId")

	png, err := h.Tickets.TicketQR(r.Context(), ticketID, auth.UserID(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, tickets.ErrTicketNotFound):
			sendError(w, http.StatusNotFound, "Ticket not found", nil)
		case errors.Is(err, tickets.ErrNotTicketOwner):
			sendError(w, http.StatusForbidden, "This ticket belongs to another user", nil)
		default:
			h.Logger.Error("TICKETS", fmt.Sprintf("QR for ticket %s failed: %v", ticketID, err))
			sendError(w, http.StatusInternalServerError, "Failed to render QR code", nil)
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// authorizeEvent writes the error response itself and returns false when the
// caller may not manage the event.
func (h *Handler) authorizeEvent(w http.ResponseWriter, r *http.Request) (string, bool) {
	eventID := chi.URLParam(r, "eventId")
	userID := auth.UserID(r.Context())

	allowed, err := h.Access.CanManage(r.Context(), userID, eventID)
	if err != nil {
		h.Logger.Error("HTTP", fmt.Sprintf("Error verifying access to event %s: %v", eventID, err))
		sendError(w, http.StatusInternalServerError, "Failed to verify event access", nil)
		return "", false
	}
	if !allowed {
		h.Logger.LogSecurity("FORBIDDEN", fmt.Sprintf("user %s on %s %s", userID, r.Method, r.URL.Path))
		sendError(w, http.StatusForbidden, "Organizer access required for this event", nil)
		return "", false
	}
	return eventID, true
}

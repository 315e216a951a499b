package analytics_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"campus-events/internal/analytics"
	"campus-events/internal/auth"
	"campus-events/internal/logger"

	"github.com/go-chi/chi/v5"
)

const maxBatchEvents = 200

type AccessChecker interface {
	CanManage(ctx context.Context, userID, eventID string) (bool, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Handler serves attendance analytics.
type Handler struct {
	Service *analytics.Service
	Access  AccessChecker
	Logger  *logger.Logger
	Now     func() time.Time
}

func NewHandler(service *analytics.Service, access AccessChecker, logger *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Access:  access,
		Logger:  logger,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes mounts the analytics routes on a router that already runs
// the auth middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/events/attendance", h.GetEventAttendance)
	r.Get("/events/{eventId}/stats", h.GetEventStats)
	r.Get("/events/{eventId}/attendance/trends", h.GetEventTrends)
	r.Get("/organizer/stats", h.GetOrganizerStats)
	r.Get("/organizer/trends", h.GetOrganizerTrends)
	r.Get("/admin/attendance-rate", h.GetAttendanceRate)
}

type batchRequest struct {
	EventIDs []string `json:"event_ids"`
}

func sendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// GetEventAttendance returns ticket totals for each requested event. The
// numbers are the ones shown on public event cards, so any signed-in user
// may ask.
func (h *Handler) GetEventAttendance(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if len(req.EventIDs) > maxBatchEvents {
		sendJSONResponse(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("At most %d events per request", maxBatchEvents)})
		return
	}

	counts, err := h.Service.EventAttendance(r.Context(), req.EventIDs)
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error getting event attendance: "+err.Error())
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get attendance"})
		return
	}
	sendJSONResponse(w, http.StatusOK, counts)
}

func (h *Handler) GetEventStats(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.authorizeEvent(w, r)
	if !ok {
		return
	}

	stats, err := h.Service.EventStats(r.Context(), eventID)
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error getting event stats: "+err.Error())
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get analytics"})
		return
	}
	sendJSONResponse(w, http.StatusOK, stats)
}

func (h *Handler) GetEventTrends(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.authorizeEvent(w, r)
	if !ok {
		return
	}
	days, ok := parseDays(w, r)
	if !ok {
		return
	}

	points, err := h.Service.EventTrends(r.Context(), eventID, days, h.Now())
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error getting event trends: "+err.Error())
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get trends"})
		return
	}
	sendJSONResponse(w, http.StatusOK, points)
}

func (h *Handler) GetOrganizerStats(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		sendJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized access"})
		return
	}

	stats, err := h.Service.OrganizerStats(r.Context(), userID)
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error getting organizer stats: "+err.Error())
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get analytics"})
		return
	}
	sendJSONResponse(w, http.StatusOK, stats)
}

func (h *Handler) GetOrganizerTrends(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		sendJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized access"})
		return
	}
	days, ok := parseDays(w, r)
	if !ok {
		return
	}

	points, err := h.Service.OrganizerTrends(r.Context(), userID, days, h.Now())
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error getting organizer trends: "+err.Error())
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get trends"})
		return
	}
	sendJSONResponse(w, http.StatusOK, points)
}

func (h *Handler) GetAttendanceRate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	isAdmin, err := h.Access.IsAdmin(r.Context(), userID)
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error checking admin role: "+err.Error())
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to verify access"})
		return
	}
	if !isAdmin {
		h.Logger.LogSecurity("FORBIDDEN", fmt.Sprintf("user %s requested the global attendance rate", userID))
		sendJSONResponse(w, http.StatusForbidden, map[string]string{"error": "Administrator access required"})
		return
	}

	rate, err := h.Service.AttendanceRate(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error getting attendance rate: "+err.Error())
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get attendance rate"})
		return
	}
	sendJSONResponse(w, http.StatusOK, map[string]int{"attendance_rate": rate})
}

func (h *Handler) authorizeEvent(w http.ResponseWriter, r *http.Request) (string, bool) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		sendJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "event_id is required"})
		return "", false
	}

	userID := auth.UserID(r.Context())
	if userID == "" {
		sendJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized access"})
		return "", false
	}

	allowed, err := h.Access.CanManage(r.Context(), userID, eventID)
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error verifying event access: "+err.Error())
		sendJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "Failed to verify event ownership"})
		return "", false
	}
	if !allowed {
		h.Logger.Warn("ANALYTICS", fmt.Sprintf("User %s attempted to access analytics for event %s", userID, eventID))
		sendJSONResponse(w, http.StatusForbidden, map[string]string{"error": "You do not have permission to access these analytics"})
		return "", false
	}
	return eventID, true
}

func parseDays(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return analytics.DefaultTrendDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > 366 {
		sendJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "days must be between 1 and 366"})
		return 0, false
	}
	return days, true
}

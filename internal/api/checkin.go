package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"campus-events/internal/auth"
	"campus-events/internal/checkin"
	"campus-events/internal/models"
	"campus-events/internal/session"
	"campus-events/internal/utils"

	"github.com/go-chi/chi/v5"
)

// checkInStatus maps a validation outcome to the HTTP status of the response.
func checkInStatus(result models.CheckInResult) int {
	if result.OK {
		return http.StatusOK
	}
	if result.Retryable {
		return http.StatusServiceUnavailable
	}
	switch result.Message {
	case checkin.MsgInvalidCode:
		return http.StatusNotFound
	case checkin.MsgWrongEvent:
		return http.StatusUnprocessableEntity
	case checkin.MsgOrganizerOnly:
		return http.StatusForbidden
	case checkin.MsgAlreadyCheckedIn:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// CheckIn validates a scanned or typed code against the event in the path.
func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req models.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	operatorID := auth.UserID(r.Context())
	eventID := chi.URLParam(r, "eventId")

	result, err := h.Validator.ValidateAndCheckIn(r.Context(), req.Code, operatorID, eventID)
	if err != nil {
		h.Logger.Error("CHECKIN", fmt.Sprintf("[%s] validation error: %v", eventID, err))
	}

	h.recordScan(r, operatorID, session.ScanRecord{
		EventID: eventID,
		Code:    req.Code,
		Result:  result,
		At:      h.Now(),
	})

	sendJSONResponse(w, checkInStatus(result), utils.APIResponse{
		Success:   result.OK,
		Message:   result.Message,
		Data:      result,
		Timestamp: h.Now(),
	})
}

func (h *Handler) recordScan(r *http.Request, operatorID string, rec session.ScanRecord) {
	if h.Sessions == nil {
		return
	}
	err := h.Sessions.RecordScan(r.Context(), operatorID, rec)
	if err == nil || errors.Is(err, session.ErrNoSession) {
		return
	}
	h.Logger.Warn("REDIS", fmt.Sprintf("Failed to record scan for %s: %v", operatorID, err))
}

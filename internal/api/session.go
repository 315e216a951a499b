package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"campus-events/internal/auth"
	"campus-events/internal/session"
	"campus-events/internal/utils"

	"github.com/go-chi/chi/v5"
)

type paymentRequest struct {
	Reference string `json:"reference"`
	Confirmed bool   `json:"confirmed"`
}

// OpenSession is called by the client right after sign-in.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if err := h.Sessions.Open(r.Context(), userID); err != nil {
		h.sessionError(w, userID, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("Session opened", nil))
}

// CloseSession is called on sign-out and drops everything stored for the user.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if err := h.Sessions.Close(r.Context(), userID); err != nil {
		h.sessionError(w, userID, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("Session closed", nil))
}

func (h *Handler) GetRecentScans(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	scans, err := h.Sessions.RecentScans(r.Context(), userID)
	if err != nil {
		h.sessionError(w, userID, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("Recent scans", scans))
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	p, err := h.Sessions.PaymentFor(r.Context(), userID, chi.URLParam(r, "eventId"))
	if err != nil {
		h.sessionError(w, userID, err)
		return
	}
	if p == nil {
		sendError(w, http.StatusNotFound, "No payment recorded for this event", nil)
		return
	}
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("Payment", p))
}

func (h *Handler) PutPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	userID := auth.UserID(r.Context())
	p := session.PaymentConfirmation{
		EventID:   chi.URLParam(r, "eventId"),
		Reference: req.Reference,
		Confirmed: req.Confirmed,
		At:        h.Now(),
	}
	if err := h.Sessions.ConfirmPayment(r.Context(), userID, p); err != nil {
		h.sessionError(w, userID, err)
		return
	}
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("Payment recorded", p))
}

func (h *Handler) sessionError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, session.ErrNoSession):
		sendError(w, http.StatusConflict, "No open session; sign in again", nil)
	case errors.Is(err, session.ErrBadKey):
		sendError(w, http.StatusUnauthorized, "Unauthorized access", nil)
	default:
		h.Logger.Error("REDIS", fmt.Sprintf("Session operation for %s failed: %v", userID, err))
		sendError(w, http.StatusInternalServerError, "Session store unavailable", nil)
	}
}

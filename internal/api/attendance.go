package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"campus-events/internal/attendance"
	"campus-events/internal/sse"
	"campus-events/internal/utils"
)

func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.authorizeEvent(w, r)
	if !ok {
		return
	}
	sendJSONResponse(w, http.StatusOK, utils.SuccessResponse("Attendance", h.Attendance.History(r.Context(), eventID)))
}

// ExportAttendance downloads the attendance history as CSV. The number of
// partial-load warnings is reported in a header so the file itself stays
// clean.
func (h *Handler) ExportAttendance(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.authorizeEvent(w, r)
	if !ok {
		return
	}

	history := h.Attendance.History(r.Context(), eventID)

	var buf bytes.Buffer
	if err := attendance.WriteCSV(&buf, history.Rows); err != nil {
		h.Logger.Error("ATTENDANCE", fmt.Sprintf("[%s] CSV export failed: %v", eventID, err))
		sendError(w, http.StatusInternalServerError, "Failed to export attendance", nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "attendance-"+eventID+".csv"))
	w.Header().Set("X-Attendance-Warnings", strconv.Itoa(len(history.Warnings)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// StreamCheckIns pushes the event's ticket activity to an organizer's
// dashboard over SSE.
func (h *Handler) StreamCheckIns(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.authorizeEvent(w, r)
	if !ok {
		return
	}

	ch := h.Events.SubscribeToEvent(r.Context(), eventID)
	if err := sse.Stream(w, r, ch, h.Heartbeat); err != nil {
		h.Logger.Warn("HTTP", fmt.Sprintf("[%s] SSE stream ended: %v", eventID, err))
	}
}

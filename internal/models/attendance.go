package models

import (
	"time"
)

// RSVPSource records where an AttendanceRow's RSVPTime came from.
type RSVPSource string

const (
	RSVPFromRegistration RSVPSource = "registration"
	RSVPFromTicket       RSVPSource = "ticket"
	// RSVPUnknown means neither a registration nor a ticket creation time
	// was available and RSVPTime holds the reconciliation time instead.
	RSVPUnknown RSVPSource = "unknown"
)

// AttendanceRow is one line of an event's attendance history. It is derived
// on every load and never stored.
type AttendanceRow struct {
	UserID         string     `json:"user_id"`
	RegistrationID string     `json:"registration_id,omitempty"`
	TicketID       string     `json:"ticket_id,omitempty"`
	RSVPTime       time.Time  `json:"rsvp_time"`
	RSVPSource     RSVPSource `json:"rsvp_source"`
	IsCheckedIn    bool       `json:"is_checked_in"`
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
	Profile        *Profile   `json:"profile,omitempty"`
}

type EventAttendance struct {
	Total     int `json:"total"`
	CheckedIn int `json:"checked_in"`
}

type TrendPoint struct {
	Date     string `json:"date"`
	RSVPs    int    `json:"rsvps"`
	CheckIns int    `json:"checkins"`
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID       string     `bun:"ticket_id,pk" json:"ticket_id"`
	RegistrationID string     `bun:"registration_id,notnull" json:"registration_id"`
	EventID        string     `bun:"event_id,notnull" json:"event_id"`
	UserID         string     `bun:"user_id,notnull" json:"user_id"`
	QRCode         string     `bun:"qr_code,notnull,unique" json:"qr_code"`
	IsCheckedIn    bool       `bun:"is_checked_in,notnull,default:false" json:"is_checked_in"`
	CheckedInAt    *time.Time `bun:"checked_in_at,nullzero" json:"checked_in_at,omitempty"`
	CreatedAt      time.Time  `bun:"created_at,notnull" json:"created_at"`
}

// CheckInTime returns when the ticket was redeemed, falling back to its
// creation time for rows checked in without a recorded timestamp.
func (t *Ticket) CheckInTime() time.Time {
	if t.CheckedInAt != nil && !t.CheckedInAt.IsZero() {
		return *t.CheckedInAt
	}
	return t.CreatedAt
}

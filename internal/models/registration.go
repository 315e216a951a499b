package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Registration is a student's RSVP. One per (event, user).
type Registration struct {
	bun.BaseModel `bun:"table:registrations"`

	RegistrationID string    `bun:"registration_id,pk" json:"registration_id"`
	EventID        string    `bun:"event_id,notnull" json:"event_id"`
	UserID         string    `bun:"user_id,notnull" json:"user_id"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"created_at"`
}

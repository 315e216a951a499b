package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusPublished EventStatus = "published"
	EventStatusRejected  EventStatus = "rejected"
)

// Event is the externally owned event record. Only the fields the ticketing
// core reads are mapped.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	EventID     string      `bun:"event_id,pk" json:"event_id"`
	Title       string      `bun:"title,notnull" json:"title"`
	CreatedBy   string      `bun:"created_by,notnull" json:"created_by"`
	MaxCapacity int         `bun:"max_cap,notnull,default:0" json:"max_capacity"` // 0 = unlimited
	Status      EventStatus `bun:"status,notnull,default:'published'" json:"status"`
	StartsAt    time.Time   `bun:"starts_at,nullzero" json:"starts_at"`
	CreatedAt   time.Time   `bun:"created_at,notnull" json:"created_at"`
}

// HasCapacityLimit reports whether registrations are capped for this event.
func (e *Event) HasCapacityLimit() bool {
	return e.MaxCapacity > 0
}

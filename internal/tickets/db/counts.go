package db

import (
	"context"

	"campus-events/internal/models"
)

// GetTotalTicketsCount returns the number of tickets issued across all events.
func (d *DB) GetTotalTicketsCount(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Count(ctx)
}

func (d *DB) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Registration)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
}

func (d *DB) CountCheckedIn(ctx context.Context, eventID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("event_id = ?", eventID).
		Where("is_checked_in = ?", true).
		Count(ctx)
}

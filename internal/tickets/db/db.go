package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"campus-events/internal/models"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyRegistered = errors.New("user already registered for event")
	ErrEventFull         = errors.New("event is at capacity")
	ErrAlreadyCheckedIn  = errors.New("ticket already checked in")
)

type DB struct {
	Bun *bun.DB
}

// CreateRegistrationWithTicket inserts reg and ticket atomically. The event row
// is locked on Postgres so concurrent RSVPs see a consistent capacity count.
func (d *DB) CreateRegistrationWithTicket(ctx context.Context, reg *models.Registration, ticket *models.Ticket) error {
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var event models.Event
		q := tx.NewSelect().Model(&event).Where("event_id = ?", reg.EventID)
		if tx.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			return notFound(err)
		}

		exists, err := tx.NewSelect().
			Model((*models.Registration)(nil)).
			Where("event_id = ?", reg.EventID).
			Where("user_id = ?", reg.UserID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyRegistered
		}

		if event.HasCapacityLimit() {
			count, err := tx.NewSelect().
				Model((*models.Registration)(nil)).
				Where("event_id = ?", reg.EventID).
				Count(ctx)
			if err != nil {
				return err
			}
			if count >= event.MaxCapacity {
				return ErrEventFull
			}
		}

		if _, err := tx.NewInsert().Model(reg).Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewInsert().Model(ticket).Exec(ctx)
		return err
	})
	if isUniqueViolation(err) {
		return ErrAlreadyRegistered
	}
	return err
}

func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &ticket, nil
}

func (d *DB) GetTicketByCode(ctx context.Context, code string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("qr_code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &ticket, nil
}

// GetTicketsByUser returns the user's tickets, newest first.
func (d *DB) GetTicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	return tickets, err
}

func (d *DB) GetTicketsByEvent(ctx context.Context, eventID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("event_id = ?", eventID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	return tickets, err
}

func (d *DB) GetRegistrationsByEvent(ctx context.Context, eventID string) ([]models.Registration, error) {
	var regs []models.Registration
	err := d.Bun.NewSelect().
		Model(&regs).
		Where("event_id = ?", eventID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	return regs, err
}

// MarkCheckedIn flips is_checked_in from false to true. Only one caller can
// win for a given ticket; every other caller gets ErrAlreadyCheckedIn.
func (d *DB) MarkCheckedIn(ctx context.Context, ticketID string, at time.Time) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("is_checked_in = ?", true).
		Set("checked_in_at = ?", at).
		Where("ticket_id = ?", ticketID).
		Where("is_checked_in = ?", false).
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyCheckedIn
	}
	return nil
}

func (d *DB) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

func (d *DB) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := d.Bun.NewSelect().
		Model(&profile).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

// GetProfiles returns the profiles that exist for userIDs. Missing users are
// simply absent from the result.
func (d *DB) GetProfiles(ctx context.Context, userIDs []string) ([]models.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var profiles []models.Profile
	err := d.Bun.NewSelect().
		Model(&profiles).
		Where("user_id IN (?)", bun.In(userIDs)).
		Scan(ctx)
	return profiles, err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// sqlite reports constraint failures only through the message.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

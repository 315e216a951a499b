package checkin

import (
	"context"
	"errors"
	"fmt"

	"campus-events/internal/models"
	"campus-events/internal/tickets/db"
)

// Directory resolves the event and profile records used for authorization.
type Directory interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

// EventAccess decides who may operate an event: its creating account or an
// administrator.
type EventAccess struct {
	Directory Directory
}

func NewEventAccess(dir Directory) *EventAccess {
	return &EventAccess{Directory: dir}
}

// CanManage reports whether userID may check tickets in or read attendance
// for eventID. Missing event or profile records deny access; any other lookup
// failure is returned.
func (a *EventAccess) CanManage(ctx context.Context, userID, eventID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	event, err := a.Directory.GetEvent(ctx, eventID)
	switch {
	case err == nil:
		if event.CreatedBy == userID {
			return true, nil
		}
	case errors.Is(err, db.ErrNotFound):
	default:
		return false, fmt.Errorf("load event %s: %w", eventID, err)
	}

	return a.IsAdmin(ctx, userID)
}

func (a *EventAccess) IsAdmin(ctx context.Context, userID string) (bool, error) {
	profile, err := a.Directory.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return profile.IsAdmin(), nil
}

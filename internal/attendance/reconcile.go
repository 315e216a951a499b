package attendance

import (
	"sort"
	"time"

	"campus-events/internal/models"
)

type userSources struct {
	reg     *models.Registration
	tickets []models.Ticket
}

// Reconcile folds an event's registrations and tickets into one row per user.
// It is pure: the same inputs and now always give the same rows.
//
// If regs is empty but tickets exist, the registrations were most likely not
// readable, and one row per ticket is returned instead.
func Reconcile(regs []models.Registration, tickets []models.Ticket, profiles map[string]models.Profile, now time.Time) []models.AttendanceRow {
	if len(regs) == 0 && len(tickets) > 0 {
		return ticketRows(tickets, profiles, now)
	}

	byUser := make(map[string]*userSources)
	get := func(userID string) *userSources {
		s, ok := byUser[userID]
		if !ok {
			s = &userSources{}
			byUser[userID] = s
		}
		return s
	}

	for i := range regs {
		s := get(regs[i].UserID)
		// keep the earliest if the store ever returns more than one
		if s.reg == nil || regs[i].CreatedAt.Before(s.reg.CreatedAt) {
			s.reg = &regs[i]
		}
	}
	for _, t := range tickets {
		s := get(t.UserID)
		s.tickets = append(s.tickets, t)
	}

	rows := make([]models.AttendanceRow, 0, len(byUser))
	for userID, s := range byUser {
		row := models.AttendanceRow{UserID: userID}

		switch {
		case s.reg != nil && !s.reg.CreatedAt.IsZero():
			row.RSVPTime = s.reg.CreatedAt
			row.RSVPSource = models.RSVPFromRegistration
		default:
			if earliest, ok := earliestCreated(s.tickets); ok {
				row.RSVPTime = earliest
				row.RSVPSource = models.RSVPFromTicket
			} else {
				row.RSVPTime = now
				row.RSVPSource = models.RSVPUnknown
			}
		}

		var chosen *models.Ticket
		if checked := latestCheckedIn(s.tickets); checked != nil {
			chosen = checked
			row.IsCheckedIn = true
			at := checked.CheckInTime()
			if !at.IsZero() {
				row.CheckedInAt = &at
			}
		} else {
			chosen = latestCreated(s.tickets)
		}

		if chosen != nil {
			row.TicketID = chosen.TicketID
		}
		if s.reg != nil {
			row.RegistrationID = s.reg.RegistrationID
		} else if chosen != nil {
			row.RegistrationID = chosen.RegistrationID
		}

		row.Profile = lookupProfile(profiles, userID)
		rows = append(rows, row)
	}

	sortRows(rows, func(r models.AttendanceRow) string { return r.UserID })
	return rows
}

func ticketRows(tickets []models.Ticket, profiles map[string]models.Profile, now time.Time) []models.AttendanceRow {
	rows := make([]models.AttendanceRow, 0, len(tickets))
	for _, t := range tickets {
		row := models.AttendanceRow{
			UserID:         t.UserID,
			RegistrationID: t.RegistrationID,
			TicketID:       t.TicketID,
			IsCheckedIn:    t.IsCheckedIn,
			Profile:        lookupProfile(profiles, t.UserID),
		}

		switch {
		case !t.CreatedAt.IsZero():
			row.RSVPTime = t.CreatedAt
			row.RSVPSource = models.RSVPFromTicket
		case t.CheckedInAt != nil && !t.CheckedInAt.IsZero():
			row.RSVPTime = *t.CheckedInAt
			row.RSVPSource = models.RSVPFromTicket
		default:
			row.RSVPTime = now
			row.RSVPSource = models.RSVPUnknown
		}

		if t.IsCheckedIn {
			if at := t.CheckInTime(); !at.IsZero() {
				row.CheckedInAt = &at
			}
		}
		rows = append(rows, row)
	}

	sortRows(rows, func(r models.AttendanceRow) string { return r.TicketID })
	return rows
}

// sortRows orders by RSVPTime, newest first, then by key for stable output.
func sortRows(rows []models.AttendanceRow, key func(models.AttendanceRow) string) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].RSVPTime.Equal(rows[j].RSVPTime) {
			return rows[i].RSVPTime.After(rows[j].RSVPTime)
		}
		return key(rows[i]) < key(rows[j])
	})
}

func earliestCreated(tickets []models.Ticket) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, t := range tickets {
		if t.CreatedAt.IsZero() {
			continue
		}
		if !found || t.CreatedAt.Before(earliest) {
			earliest = t.CreatedAt
			found = true
		}
	}
	return earliest, found
}

func latestCheckedIn(tickets []models.Ticket) *models.Ticket {
	var latest *models.Ticket
	for i := range tickets {
		t := &tickets[i]
		if !t.IsCheckedIn {
			continue
		}
		if latest == nil || later(t.CheckInTime(), t.TicketID, latest.CheckInTime(), latest.TicketID) {
			latest = t
		}
	}
	return latest
}

func latestCreated(tickets []models.Ticket) *models.Ticket {
	var latest *models.Ticket
	for i := range tickets {
		t := &tickets[i]
		if latest == nil || later(t.CreatedAt, t.TicketID, latest.CreatedAt, latest.TicketID) {
			latest = t
		}
	}
	return latest
}

// later breaks timestamp ties by id so input order never matters.
func later(a time.Time, aID string, b time.Time, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

func lookupProfile(profiles map[string]models.Profile, userID string) *models.Profile {
	p, ok := profiles[userID]
	if !ok {
		return nil
	}
	return &p
}

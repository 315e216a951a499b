package attendance

import (
	"testing"
	"time"

	"campus-events/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0  = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	now = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
)

func at(d time.Duration) time.Time { return t0.Add(d) }

func ptr(t time.Time) *time.Time { return &t }

func TestReconcile_RegistrationWithUncheckedTicket(t *testing.T) {
	regs := []models.Registration{{RegistrationID: "r1", EventID: "e", UserID: "user1", CreatedAt: t0}}
	tickets := []models.Ticket{{TicketID: "tk1", RegistrationID: "r1", EventID: "e", UserID: "user1", QRCode: "CE-1", CreatedAt: at(time.Minute)}}

	rows := Reconcile(regs, tickets, nil, now)

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "user1", row.UserID)
	assert.Equal(t, "r1", row.RegistrationID)
	assert.Equal(t, "tk1", row.TicketID)
	assert.False(t, row.IsCheckedIn)
	assert.Nil(t, row.CheckedInAt)
	assert.True(t, row.RSVPTime.Equal(t0))
	assert.Equal(t, models.RSVPFromRegistration, row.RSVPSource)
	assert.Nil(t, row.Profile)
}

func TestReconcile_TicketOnlyFallback(t *testing.T) {
	t1 := at(2 * time.Hour)
	tickets := []models.Ticket{{TicketID: "tk1", EventID: "e", UserID: "user1", IsCheckedIn: true, CheckedInAt: ptr(t1), CreatedAt: t0}}

	rows := Reconcile(nil, tickets, nil, now)

	require.Len(t, rows, 1)
	assert.Equal(t, "user1", rows[0].UserID)
	assert.True(t, rows[0].IsCheckedIn)
	require.NotNil(t, rows[0].CheckedInAt)
	assert.True(t, rows[0].CheckedInAt.Equal(t1))
	assert.Equal(t, models.RSVPFromTicket, rows[0].RSVPSource)
}

func TestReconcile_FallbackEmitsOneRowPerTicket(t *testing.T) {
	tickets := []models.Ticket{
		{TicketID: "a", UserID: "user1", CreatedAt: at(time.Hour)},
		{TicketID: "b", UserID: "user1", CreatedAt: at(3 * time.Hour)},
		{TicketID: "c", UserID: "user2", IsCheckedIn: true, CheckedInAt: ptr(at(2 * time.Hour))},
	}

	rows := Reconcile(nil, tickets, nil, now)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{rows[0].TicketID, rows[1].TicketID, rows[2].TicketID})
	assert.True(t, rows[1].RSVPTime.Equal(at(2*time.Hour)))
}

func TestReconcile_UsesLatestCheckIn(t *testing.T) {
	regs := []models.Registration{{RegistrationID: "r1", UserID: "user1", CreatedAt: t0}}
	tickets := []models.Ticket{
		{TicketID: "old", UserID: "user1", IsCheckedIn: true, CheckedInAt: ptr(at(time.Hour)), CreatedAt: t0},
		{TicketID: "new", UserID: "user1", IsCheckedIn: true, CheckedInAt: ptr(at(5 * time.Hour)), CreatedAt: t0},
		{TicketID: "unused", UserID: "user1", CreatedAt: at(9 * time.Hour)},
	}

	rows := Reconcile(regs, tickets, nil, now)

	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsCheckedIn)
	assert.Equal(t, "new", rows[0].TicketID)
	assert.True(t, rows[0].CheckedInAt.Equal(at(5*time.Hour)))
}

func TestReconcile_CheckInWithoutTimestampFallsBackToCreatedAt(t *testing.T) {
	regs := []models.Registration{{RegistrationID: "r1", UserID: "user1", CreatedAt: t0}}
	tickets := []models.Ticket{{TicketID: "tk", UserID: "user1", IsCheckedIn: true, CreatedAt: at(time.Hour)}}

	rows := Reconcile(regs, tickets, nil, now)

	require.NotNil(t, rows[0].CheckedInAt)
	assert.True(t, rows[0].CheckedInAt.Equal(at(time.Hour)))
}

func TestReconcile_UncheckedUsesNewestTicket(t *testing.T) {
	regs := []models.Registration{{RegistrationID: "r1", UserID: "user1", CreatedAt: t0}}
	tickets := []models.Ticket{
		{TicketID: "first", UserID: "user1", CreatedAt: at(time.Minute)},
		{TicketID: "second", UserID: "user1", CreatedAt: at(time.Hour)},
	}

	rows := Reconcile(regs, tickets, nil, now)
	assert.Equal(t, "second", rows[0].TicketID)
}

func TestReconcile_RSVPTimeSources(t *testing.T) {
	regs := []models.Registration{
		{RegistrationID: "r1", UserID: "with-reg", CreatedAt: t0},
		{RegistrationID: "r2", UserID: "blank-reg"},
	}
	tickets := []models.Ticket{
		{TicketID: "x1", UserID: "ticket-only", CreatedAt: at(4 * time.Hour)},
		{TicketID: "x2", UserID: "ticket-only", CreatedAt: at(2 * time.Hour)},
	}

	rows := Reconcile(regs, tickets, nil, now)
	byUser := map[string]models.AttendanceRow{}
	for _, r := range rows {
		byUser[r.UserID] = r
	}

	require.Len(t, byUser, 3)
	assert.Equal(t, models.RSVPFromRegistration, byUser["with-reg"].RSVPSource)

	assert.Equal(t, models.RSVPFromTicket, byUser["ticket-only"].RSVPSource)
	assert.True(t, byUser["ticket-only"].RSVPTime.Equal(at(2*time.Hour)))
	assert.Empty(t, byUser["ticket-only"].RegistrationID)

	assert.Equal(t, models.RSVPUnknown, byUser["blank-reg"].RSVPSource)
	assert.True(t, byUser["blank-reg"].RSVPTime.Equal(now))
	assert.Equal(t, "r2", byUser["blank-reg"].RegistrationID)
}

func TestReconcile_OrderIsNonIncreasingAndDeterministic(t *testing.T) {
	regs := []models.Registration{
		{RegistrationID: "r1", UserID: "u1", CreatedAt: at(time.Hour)},
		{RegistrationID: "r2", UserID: "u2", CreatedAt: at(3 * time.Hour)},
		{RegistrationID: "r3", UserID: "u3", CreatedAt: at(3 * time.Hour)},
		{RegistrationID: "r4", UserID: "u4", CreatedAt: at(2 * time.Hour)},
	}
	tickets := []models.Ticket{{TicketID: "t5", UserID: "u5", CreatedAt: at(30 * time.Minute)}}

	rows := Reconcile(regs, tickets, nil, now)
	require.Len(t, rows, 5)
	for i := 1; i < len(rows); i++ {
		assert.False(t, rows[i].RSVPTime.After(rows[i-1].RSVPTime), "row %d out of order", i)
	}

	reversed := make([]models.Registration, len(regs))
	for i := range regs {
		reversed[len(regs)-1-i] = regs[i]
	}
	assert.Equal(t, rows, Reconcile(reversed, tickets, nil, now))
	assert.Equal(t, "u2", rows[0].UserID)
	assert.Equal(t, "u3", rows[1].UserID)
}

func TestReconcile_AttachesProfiles(t *testing.T) {
	regs := []models.Registration{
		{RegistrationID: "r1", UserID: "u1", CreatedAt: t0},
		{RegistrationID: "r2", UserID: "u2", CreatedAt: t0},
	}
	profiles := map[string]models.Profile{"u1": {UserID: "u1", FullName: "Ada Lovelace", Email: "ada@campus.edu"}}

	rows := Reconcile(regs, nil, profiles, now)

	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].Profile)
	assert.Equal(t, "Ada Lovelace", rows[0].Profile.FullName)
	assert.Nil(t, rows[1].Profile)
}

func TestReconcile_Empty(t *testing.T) {
	assert.Empty(t, Reconcile(nil, nil, nil, now))
}

package analytics

import (
	"context"
	"math"
	"time"

	"campus-events/internal/models"

	"github.com/uptrace/bun"
)

const DefaultTrendDays = 14

// Service computes attendance figures straight from the registrations and
// tickets tables.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// Stats summarises one event or all events of an organizer.
type Stats struct {
	TotalEvents        int `json:"total_events,omitempty"`
	TotalRegistrations int `json:"total_registrations"`
	TicketsIssued      int `json:"tickets_issued"`
	CheckedIn          int `json:"checked_in"`
	AttendanceRate     int `json:"attendance_rate"`
}

type attendanceCount struct {
	EventID   string `bun:"event_id"`
	Total     int    `bun:"total"`
	CheckedIn int    `bun:"checked_in"`
}

// EventAttendance returns ticket totals per event. Events without tickets are
// absent from the map.
func (s *Service) EventAttendance(ctx context.Context, eventIDs []string) (map[string]models.EventAttendance, error) {
	result := make(map[string]models.EventAttendance)
	if len(eventIDs) == 0 {
		return result, nil
	}

	var counts []attendanceCount
	err := s.db.NewSelect().
		Model((*models.Ticket)(nil)).
		Column("event_id").
		ColumnExpr("COUNT(*) AS total").
		ColumnExpr("SUM(CASE WHEN is_checked_in THEN 1 ELSE 0 END) AS checked_in").
		Where("event_id IN (?)", bun.In(eventIDs)).
		Group("event_id").
		Scan(ctx, &counts)
	if err != nil {
		return nil, err
	}

	for _, c := range counts {
		result[c.EventID] = models.EventAttendance{Total: c.Total, CheckedIn: c.CheckedIn}
	}
	return result, nil
}

func (s *Service) EventStats(ctx context.Context, eventID string) (*Stats, error) {
	return s.stats(ctx, []string{eventID})
}

// OrganizerStats aggregates every event created by organizerID.
func (s *Service) OrganizerStats(ctx context.Context, organizerID string) (*Stats, error) {
	ids, err := s.organizerEventIDs(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats(ctx, ids)
	if err != nil {
		return nil, err
	}
	stats.TotalEvents = len(ids)
	return stats, nil
}

func (s *Service) stats(ctx context.Context, eventIDs []string) (*Stats, error) {
	stats := &Stats{}
	if len(eventIDs) == 0 {
		return stats, nil
	}

	regs, err := s.db.NewSelect().
		Model((*models.Registration)(nil)).
		Where("event_id IN (?)", bun.In(eventIDs)).
		Count(ctx)
	if err != nil {
		return nil, err
	}

	attendance, err := s.EventAttendance(ctx, eventIDs)
	if err != nil {
		return nil, err
	}
	for _, a := range attendance {
		stats.TicketsIssued += a.Total
		stats.CheckedIn += a.CheckedIn
	}

	stats.TotalRegistrations = regs
	stats.AttendanceRate = rate(stats.CheckedIn, regs)
	return stats, nil
}

// AttendanceRate is the share of registrations, across all events, whose
// ticket has been checked in, as a rounded percentage.
func (s *Service) AttendanceRate(ctx context.Context) (int, error) {
	regs, err := s.db.NewSelect().
		Model((*models.Registration)(nil)).
		Count(ctx)
	if err != nil {
		return 0, err
	}
	checked, err := s.db.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("is_checked_in = ?", true).
		Count(ctx)
	if err != nil {
		return 0, err
	}
	return rate(checked, regs), nil
}

func (s *Service) organizerEventIDs(ctx context.Context, organizerID string) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().
		Model((*models.Event)(nil)).
		Column("event_id").
		Where("created_by = ?", organizerID).
		Scan(ctx, &ids)
	return ids, err
}

func rate(checkedIn, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(checkedIn) / float64(total) * 100))
}

// day truncates t to midnight UTC.
func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

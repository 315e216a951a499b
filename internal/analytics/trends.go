package analytics

import (
	"context"
	"time"

	"campus-events/internal/models"

	"github.com/uptrace/bun"
)

type trendTicket struct {
	CreatedAt   time.Time  `bun:"created_at"`
	IsCheckedIn bool       `bun:"is_checked_in"`
	CheckedInAt *time.Time `bun:"checked_in_at"`
}

// EventTrends returns one point per UTC day for the last days days ending
// with now's day. RSVPs count by ticket creation; check-ins count by
// checked_in_at, or by creation when no check-in time was recorded.
func (s *Service) EventTrends(ctx context.Context, eventID string, days int, now time.Time) ([]models.TrendPoint, error) {
	return s.trends(ctx, []string{eventID}, days, now)
}

func (s *Service) OrganizerTrends(ctx context.Context, organizerID string, days int, now time.Time) ([]models.TrendPoint, error) {
	ids, err := s.organizerEventIDs(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	return s.trends(ctx, ids, days, now)
}

func (s *Service) trends(ctx context.Context, eventIDs []string, days int, now time.Time) ([]models.TrendPoint, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	since := day(now).AddDate(0, 0, -(days - 1))

	points := make([]models.TrendPoint, days)
	index := make(map[string]int, days)
	for i := range points {
		key := since.AddDate(0, 0, i).Format("2006-01-02")
		points[i] = models.TrendPoint{Date: key}
		index[key] = i
	}

	if len(eventIDs) == 0 {
		return points, nil
	}

	var rows []trendTicket
	err := s.db.NewSelect().
		Model((*models.Ticket)(nil)).
		Column("created_at", "is_checked_in", "checked_in_at").
		Where("event_id IN (?)", bun.In(eventIDs)).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("created_at >= ?", since).WhereOr("checked_in_at >= ?", since)
		}).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		if i, ok := index[r.CreatedAt.UTC().Format("2006-01-02")]; ok {
			points[i].RSVPs++
		}
		if !r.IsCheckedIn {
			continue
		}
		source := r.CreatedAt
		if r.CheckedInAt != nil && !r.CheckedInAt.IsZero() {
			source = *r.CheckedInAt
		}
		if i, ok := index[source.UTC().Format("2006-01-02")]; ok {
			points[i].CheckIns++
		}
	}
	return points, nil
}

package services

import (
	"sort"
	"time"

	"kbgraph/internal/domain"
	apperrors "kbgraph/pkg/errors"
)

// Default windows for the activity reports.
const (
	DefaultTrendMonths  = 6
	DefaultRecentDays   = 7
	DefaultActivityDays = 30
	monthLayout         = "2006-01"
	dayLayout           = "2006-01-02"
)

// PeriodCount is the number of documents created in one month or day.
type PeriodCount struct {
	Period string
	Count  int
}

// DocumentTrend counts documents created in each of the last months calendar
// months up to and including now's month, oldest first. Empty months are
// reported with a zero count.
func DocumentTrend(docs []domain.Document, months int, now time.Time) ([]PeriodCount, error) {
	if months <= 0 {
		return nil, apperrors.NewValidationError("months must be positive")
	}

	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	points := make([]PeriodCount, months)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		key := first.AddDate(0, i, 0).Format(monthLayout)
		points[i] = PeriodCount{Period: key}
		index[key] = i
	}
	for _, d := range docs {
		if i, ok := index[d.CreatedAt.UTC().Format(monthLayout)]; ok {
			points[i].Count++
		}
	}
	return points, nil
}

// ActivityHeatmap counts documents created on each of the last days days up
// to and including today, oldest first.
func ActivityHeatmap(docs []domain.Document, days int, now time.Time) ([]PeriodCount, error) {
	if days <= 0 {
		return nil, apperrors.NewValidationError("days must be positive")
	}

	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	points := make([]PeriodCount, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		key := first.AddDate(0, 0, i).Format(dayLayout)
		points[i] = PeriodCount{Period: key}
		index[key] = i
	}
	for _, d := range docs {
		if i, ok := index[d.CreatedAt.UTC().Format(dayLayout)]; ok {
			points[i].Count++
		}
	}
	return points, nil
}

// RecentActivity lists documents created or updated within a window.
type RecentActivity struct {
	Documents []domain.Document
	Created   int
	Updated   int
}

// CollectRecentActivity returns documents touched in the last days days,
// most recently touched first.
func CollectRecentActivity(docs []domain.Document, days int, now time.Time) (RecentActivity, error) {
	if days <= 0 {
		return RecentActivity{}, apperrors.NewValidationError("days must be positive")
	}
	since := now.Add(-time.Duration(days) * 24 * time.Hour)

	out := RecentActivity{Documents: make([]domain.Document, 0)}
	for _, d := range docs {
		created := !d.CreatedAt.Before(since)
		updated := !d.UpdatedAt.Before(since) && d.UpdatedAt.After(d.CreatedAt)
		if created {
			out.Created++
		}
		if updated {
			out.Updated++
		}
		if created || updated {
			out.Documents = append(out.Documents, d)
		}
	}

	sort.SliceStable(out.Documents, func(i, j int) bool {
		return lastTouched(out.Documents[i]).After(lastTouched(out.Documents[j]))
	})
	return out, nil
}

func lastTouched(d domain.Document) time.Time {
	if d.UpdatedAt.After(d.CreatedAt) {
		return d.UpdatedAt
	}
	return d.CreatedAt
}

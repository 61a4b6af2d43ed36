// Package insight computes monthly budget aggregates from the planner
// document. All numbers are derived on read from projected events; nothing
// here is persisted.
package insight

import (
	"math"
	"sort"
	"time"

	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/recur"
)

// WeekBuckets is the number of week-of-month buckets. A month never spans
// more than five calendar weeks.
const WeekBuckets = 5

// CategorySpend is one row of the by-category breakdown.
type CategorySpend struct {
	Category string  `json:"category"`
	Actual   float64 `json:"actual"`
}

// MonthReport aggregates one month of projected events against the budget.
type MonthReport struct {
	Year           int                  `json:"year"`
	Month          time.Month           `json:"month"`
	TotalActual    float64              `json:"totalActual"`
	TotalEstimated float64              `json:"totalEstimated"`
	MonthlyLimit   float64              `json:"monthlyLimit"`
	Remaining      float64              `json:"remaining"`
	ByCategory     []CategorySpend      `json:"byCategory"`
	ByWeek         [WeekBuckets]float64 `json:"byWeek"`
	EventCount     int                  `json:"eventCount"`
}

// Month expands all events into the given month's window and aggregates.
//
// Actual spend per event is ActualCost when recorded, EstimatedCost
// otherwise. Category comes from the event's originating Activity, falling
// back to the category copied onto the event when it was created, then to
// "Other". Week buckets follow ceil((dayOfMonth + firstWeekdayOffset) / 7)
// with a Sunday-first offset, clipped to 1..5.
func Month(doc plan.Document, year int, month time.Month) MonthReport {
	start, end := recur.MonthWindow(year, month)
	events := recur.Project(doc.Events, start, end)

	report := MonthReport{
		Year:         year,
		Month:        month,
		MonthlyLimit: doc.Budget.MonthlyLimit,
	}

	firstWeekday := int(time.Date(year, month, 1, 12, 0, 0, 0, time.UTC).Weekday())

	byCategory := map[string]float64{}
	for _, ev := range events {
		d, err := recur.ParseDate(ev.Date)
		if err != nil || d.Before(start) || d.After(end) {
			// Non-recurring events pass through projection regardless of
			// date; only this month's belong in the report.
			continue
		}

		actual := ev.EstimatedCost
		if ev.ActualCost != nil {
			actual = *ev.ActualCost
		}
		report.TotalActual += actual
		report.TotalEstimated += ev.EstimatedCost
		report.EventCount++

		byCategory[categoryFor(doc, ev)] += actual

		bucket := weekBucket(d.Day, firstWeekday)
		report.ByWeek[bucket-1] += actual
	}

	report.Remaining = math.Max(0, doc.Budget.MonthlyLimit-report.TotalActual)
	report.ByCategory = sortedCategories(byCategory)
	return report
}

// categoryFor joins an event to its originating activity's cost category.
// When the reference is absent, dangling, or the activity has no category,
// the category copied onto the event at creation applies; "Other" is the
// final fallback.
func categoryFor(doc plan.Document, ev plan.CalendarEvent) string {
	if ev.ActivityID != "" {
		if act := doc.ActivityByID(ev.ActivityID); act != nil && act.CostCategory != "" {
			return act.CostCategory
		}
	}
	if ev.CostCategory != "" {
		return ev.CostCategory
	}
	return "Other"
}

// weekBucket assigns a day of month to its calendar week, 1-based,
// clipped to the bucket range.
func weekBucket(day, firstWeekdayOffset int) int {
	bucket := (day + firstWeekdayOffset + 6) / 7 // ceil
	if bucket < 1 {
		return 1
	}
	if bucket > WeekBuckets {
		return WeekBuckets
	}
	return bucket
}

func sortedCategories(byCategory map[string]float64) []CategorySpend {
	out := make([]CategorySpend, 0, len(byCategory))
	for category, actual := range byCategory {
		out = append(out, CategorySpend{Category: category, Actual: actual})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Actual != out[j].Actual {
			return out[i].Actual > out[j].Actual
		}
		return out[i].Category < out[j].Category
	})
	return out
}

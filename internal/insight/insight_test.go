package insight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duoplan/duoplan/internal/plan"
)

func baseDoc() plan.Document {
	return plan.Document{
		CurrentUser: plan.Member{Slot: plan.Slot1, Name: "Ana"},
		Partner:     plan.Member{Slot: plan.Slot2, Name: "Bruno"},
		Activities: []plan.Activity{
			{ID: "act-dining", Name: "Dinner out", CostCategory: "Dining", EstimatedCost: 40, Scope: plan.ScopeShared},
			{ID: "act-fitness", Name: "Climbing", CostCategory: "Fitness", EstimatedCost: 15, Scope: plan.ScopeShared},
		},
		Budget: plan.BudgetConfig{MonthlyLimit: 500},
	}
}

func TestMonth_TotalsAndRemaining(t *testing.T) {
	doc := baseDoc()
	paid := 55.0
	doc.Events = []plan.CalendarEvent{
		{ID: "ev-1", ActivityID: "act-dining", Title: "Dinner", Date: "2025-03-08",
			EstimatedCost: 40, ActualCost: &paid, Recurrence: plan.RecurNone},
		{ID: "ev-2", ActivityID: "act-fitness", Title: "Climbing", Date: "2025-03-15",
			EstimatedCost: 15, Recurrence: plan.RecurNone},
	}

	r := Month(doc, 2025, time.March)

	assert.Equal(t, 70.0, r.TotalActual, "actual falls back to estimated when unrecorded")
	assert.Equal(t, 55.0, r.TotalEstimated)
	assert.Equal(t, 430.0, r.Remaining)
	assert.Equal(t, 2, r.EventCount)
}

func TestMonth_RemainingFlooredAtZero(t *testing.T) {
	doc := baseDoc()
	doc.Budget.MonthlyLimit = 30
	doc.Events = []plan.CalendarEvent{
		{ID: "ev-1", Title: "Splurge", Date: "2025-03-08", EstimatedCost: 100, Recurrence: plan.RecurNone},
	}

	r := Month(doc, 2025, time.March)
	assert.Equal(t, 0.0, r.Remaining)
}

func TestMonth_CategoryJoinWithOtherFallback(t *testing.T) {
	doc := baseDoc()
	doc.Events = []plan.CalendarEvent{
		{ID: "ev-1", ActivityID: "act-dining", Title: "Dinner", Date: "2025-03-08", EstimatedCost: 40, Recurrence: plan.RecurNone},
		{ID: "ev-2", ActivityID: "act-gone", Title: "Mystery", Date: "2025-03-09", EstimatedCost: 10, Recurrence: plan.RecurNone},
		{ID: "ev-3", Title: "Walk-in", Date: "2025-03-10", EstimatedCost: 5, Recurrence: plan.RecurNone},
		// Carries the category copied from a since-deleted activity; the
		// event copy wins over the Other fallback.
		{ID: "ev-4", ActivityID: "act-gone", CostCategory: "Food", Title: "Groceries", Date: "2025-03-11", EstimatedCost: 20, Recurrence: plan.RecurNone},
	}

	r := Month(doc, 2025, time.March)

	require.Len(t, r.ByCategory, 3)
	assert.Equal(t, CategorySpend{Category: "Dining", Actual: 40}, r.ByCategory[0])
	assert.Equal(t, CategorySpend{Category: "Food", Actual: 20}, r.ByCategory[1],
		"an unresolved join falls back to the event's own category before Other")
	assert.Equal(t, CategorySpend{Category: "Other", Actual: 15}, r.ByCategory[2],
		"dangling activity references and bare events both land in Other")
}

func TestMonth_RecurringEventsExpand(t *testing.T) {
	doc := baseDoc()
	// 2025-03-03 is a Monday; five Mondays in March 2025.
	doc.Events = []plan.CalendarEvent{
		{ID: "gym", ActivityID: "act-fitness", Title: "Gym", Date: "2025-03-03",
			EstimatedCost: 15, Recurrence: plan.RecurWeekly},
	}

	r := Month(doc, 2025, time.March)

	assert.Equal(t, 5, r.EventCount)
	assert.Equal(t, 75.0, r.TotalActual)
}

func TestMonth_EventsOutsideMonthExcluded(t *testing.T) {
	doc := baseDoc()
	doc.Events = []plan.CalendarEvent{
		{ID: "ev-1", Title: "February thing", Date: "2025-02-20", EstimatedCost: 10, Recurrence: plan.RecurNone},
		{ID: "ev-2", Title: "March thing", Date: "2025-03-20", EstimatedCost: 20, Recurrence: plan.RecurNone},
	}

	r := Month(doc, 2025, time.March)
	assert.Equal(t, 1, r.EventCount)
	assert.Equal(t, 20.0, r.TotalActual)
}

func TestMonth_WeekBuckets(t *testing.T) {
	// March 2025 starts on a Saturday (offset 6): the 1st is week 1,
	// the 2nd through 8th are week 2, the 30th and 31st clip into week 5.
	doc := baseDoc()
	doc.Events = []plan.CalendarEvent{
		{ID: "ev-1", Title: "a", Date: "2025-03-01", EstimatedCost: 1, Recurrence: plan.RecurNone},
		{ID: "ev-2", Title: "b", Date: "2025-03-02", EstimatedCost: 2, Recurrence: plan.RecurNone},
		{ID: "ev-3", Title: "c", Date: "2025-03-08", EstimatedCost: 4, Recurrence: plan.RecurNone},
		{ID: "ev-4", Title: "d", Date: "2025-03-31", EstimatedCost: 8, Recurrence: plan.RecurNone},
	}

	r := Month(doc, 2025, time.March)

	assert.Equal(t, 1.0, r.ByWeek[0])
	assert.Equal(t, 6.0, r.ByWeek[1])
	assert.Equal(t, 8.0, r.ByWeek[4])
}

func TestWeekBucket_Clipping(t *testing.T) {
	tests := []struct {
		name   string
		day    int
		offset int
		want   int
	}{
		{"first day no offset", 1, 0, 1},
		{"seventh day no offset", 7, 0, 1},
		{"eighth day no offset", 8, 0, 2},
		{"late month large offset clips to 5", 31, 6, 5},
		{"mid month", 15, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, weekBucket(tt.day, tt.offset))
		})
	}
}

func TestMonth_EmptyDocument(t *testing.T) {
	r := Month(baseDoc(), 2025, time.March)

	assert.Zero(t, r.TotalActual)
	assert.Equal(t, 500.0, r.Remaining)
	assert.Empty(t, r.ByCategory)
	assert.Zero(t, r.EventCount)
}

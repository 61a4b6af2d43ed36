package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/reducer"
)

var meta1 = reducer.Meta{Author: plan.Slot1, At: FixedTime}
var meta2 = reducer.Meta{Author: plan.Slot2, At: FixedTime}

func TestScenario_EventPropagatesWithoutAmplification(t *testing.T) {
	h := New(t)

	h.Dispatch(t, h.A, reducer.AddEvent{Meta: meta1, Event: plan.CalendarEvent{
		ID: "ev-1", Title: "Dinner", Date: "2025-03-14",
		EstimatedCost: 40, Scope: plan.ScopeShared, Recurrence: plan.RecurNone,
	}})
	h.Flush(h.A)

	// B adopted the event without ever mutating locally.
	require.Len(t, h.B.Engine.Document().Events, 1)
	assert.Equal(t, "Dinner", h.B.Engine.Document().Events[0].Title)

	h.RequireConverged(t)
	h.RequireQuiescent(t)

	// Exactly two writes total: A's seed and A's event. B wrote nothing.
	assert.Equal(t, 2, h.CountTrace("write", "A"))
	assert.Zero(t, h.CountTrace("write", "B"), "no amplification loop")
	assert.Zero(t, h.CountTrace("error", ""))
}

func TestScenario_BidirectionalEditing(t *testing.T) {
	h := New(t)

	h.Dispatch(t, h.A, reducer.AddActivity{Meta: meta1, Activity: plan.Activity{
		ID: "act-1", Name: "Hiking", CostCategory: "Outdoors", EstimatedCost: 15, Scope: plan.ScopeShared,
	}})
	h.Flush(h.A)

	h.Dispatch(t, h.B, reducer.SetBudgetLimit{Meta: meta2, Limit: 800})
	h.Flush(h.B)

	h.RequireConverged(t)
	h.RequireQuiescent(t)

	doc := h.A.Engine.Document()
	assert.Len(t, doc.Activities, 1)
	assert.Equal(t, 800.0, doc.Budget.MonthlyLimit)

	// B's log carries both authors after convergence.
	require.Len(t, doc.Logs, 2)
	assert.Contains(t, doc.Logs[0].Description, "Bruno")
	assert.Contains(t, doc.Logs[1].Description, "Ana")
}

func TestScenario_AdoptionReplacesUnflushedLocalEdit(t *testing.T) {
	h := New(t)

	// Both clients mutate inside the same debounce window.
	h.Dispatch(t, h.A, reducer.SetBudgetLimit{Meta: meta1, Limit: 100})
	h.Dispatch(t, h.B, reducer.SetBudgetLimit{Meta: meta2, Limit: 200})

	// A flushes first. B adopts A's snapshot wholesale, which discards
	// B's still-pending edit: last write wins at document granularity.
	h.Flush(h.A)
	h.Flush(h.B)

	h.RequireConverged(t)
	h.RequireQuiescent(t)
	assert.Equal(t, 100.0, h.B.Engine.Document().Budget.MonthlyLimit)

	// B's timer fired on content the store already had and wrote nothing.
	assert.Zero(t, h.CountTrace("write", "B"))
	assert.Equal(t, int64(2), h.A.Engine.Rev())
}

func TestScenario_ReconnectReconciles(t *testing.T) {
	h := New(t)

	h.Dispatch(t, h.A, reducer.AddEvent{Meta: meta1, Event: plan.CalendarEvent{
		ID: "ev-1", Title: "Dinner", Date: "2025-03-14", Scope: plan.ScopeShared, Recurrence: plan.RecurNone,
	}})
	h.Flush(h.A)
	require.NoError(t, h.B.Engine.Reconnect(context.Background()))

	h.RequireConverged(t)
	// Reconnect tears down the old subscription before opening a new one.
	assert.Equal(t, 2, h.Store.SubscriberCount(PairingID))
}

func TestScenario_GoalProgressPropagates(t *testing.T) {
	h := New(t)

	h.Dispatch(t, h.A, reducer.AddGoal{Meta: meta1, Goal: plan.Goal{
		ID: "g-1", Title: "Trip fund", Category: "Travel", FinancialTarget: 1000,
	}})
	h.Flush(h.A)

	h.Dispatch(t, h.B, reducer.AddContribution{Meta: meta2, GoalID: "g-1",
		Contribution: plan.GoalContribution{ID: "c-1", Amount: 250, Author: plan.Slot2, Date: "2025-03-10"}})
	h.Flush(h.B)

	h.RequireConverged(t)
	g := h.A.Engine.Document().SharedGoals[0]
	assert.Equal(t, 25.0, g.ProgressPercentage)
	assert.Equal(t, plan.StatusInProgress, g.Status)
}

func TestScenario_GoldenTrace(t *testing.T) {
	h := New(t)

	h.Dispatch(t, h.A, reducer.AddEvent{Meta: meta1, Event: plan.CalendarEvent{
		ID: "ev-1", Title: "Dinner", Date: "2025-03-14",
		EstimatedCost: 40, Scope: plan.ScopeShared, Recurrence: plan.RecurNone,
	}})
	h.Flush(h.A)

	h.Dispatch(t, h.B, reducer.SetBudgetLimit{Meta: meta2, Limit: 800})
	h.Flush(h.B)

	h.AssertGolden(t, "dinner_sync")
}

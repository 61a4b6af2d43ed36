package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignature_Reflexive(t *testing.T) {
	doc := NewTestDocument()

	s1, err := Signature(doc)
	require.NoError(t, err)
	s2, err := Signature(doc)
	require.NoError(t, err)

	assert.Equal(t, s1, s2, "signature must be deterministic")
	assert.Len(t, s1, 64, "hex-encoded SHA-256")
}

func TestSignature_StructuralEquality(t *testing.T) {
	a := NewTestDocument()
	b := NewTestDocument()
	assert.Equal(t, MustSignature(a), MustSignature(b))

	b.Budget.MonthlyLimit = 600
	assert.NotEqual(t, MustSignature(a), MustSignature(b))
}

func TestSignature_ArrayOrderSensitive(t *testing.T) {
	a := NewTestDocument()
	a.Activities = []Activity{
		{ID: "act-1", Name: "Hiking", Scope: ScopeShared},
		{ID: "act-2", Name: "Cinema", Scope: ScopeShared},
	}

	b := NewTestDocument()
	b.Activities = []Activity{
		{ID: "act-2", Name: "Cinema", Scope: ScopeShared},
		{ID: "act-1", Name: "Hiking", Scope: ScopeShared},
	}

	assert.NotEqual(t, MustSignature(a), MustSignature(b),
		"array order is part of document identity")
}

func TestSignature_IndependentOfFieldAssignmentOrder(t *testing.T) {
	a := NewTestDocument()
	a.Events = []CalendarEvent{{ID: "ev-1", Title: "Dinner", Date: "2025-03-10", Scope: ScopeShared, Recurrence: RecurNone}}

	// Same content, built differently.
	ev := CalendarEvent{Recurrence: RecurNone, Scope: ScopeShared}
	ev.Date = "2025-03-10"
	ev.Title = "Dinner"
	ev.ID = "ev-1"
	b := NewTestDocument()
	b.Events = []CalendarEvent{ev}

	assert.Equal(t, MustSignature(a), MustSignature(b))
}

func TestClone_IsDeep(t *testing.T) {
	cost := 25.0
	doc := NewTestDocument()
	doc.Events = []CalendarEvent{{ID: "ev-1", Title: "Dinner", Date: "2025-03-10", ActualCost: &cost, Scope: ScopeShared, Recurrence: RecurNone}}
	doc.SharedGoals = []Goal{{ID: "g-1", Title: "Trip", Contributions: []GoalContribution{{ID: "c-1", Amount: 100, Author: Slot1}}}}

	clone := doc.Clone()
	*clone.Events[0].ActualCost = 99
	clone.SharedGoals[0].Contributions[0].Amount = 1

	assert.Equal(t, 25.0, *doc.Events[0].ActualCost, "clone must not share cost pointers")
	assert.Equal(t, 100.0, doc.SharedGoals[0].Contributions[0].Amount, "clone must not share contribution slices")
}

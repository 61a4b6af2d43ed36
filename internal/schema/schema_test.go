package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/reducer"
)

func validSnapshot(t *testing.T) []byte {
	t.Helper()
	doc := reducer.NewDocument(
		plan.Member{Slot: plan.Slot1, Name: "Ana"},
		plan.Member{Slot: plan.Slot2, Name: "Bruno"},
	)
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func TestValidator_AcceptsSeedDocument(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	assert.NoError(t, v.ValidateJSON(validSnapshot(t)))
}

func TestValidator_AcceptsPopulatedDocument(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	doc := reducer.NewDocument(
		plan.Member{Slot: plan.Slot1, Name: "Ana"},
		plan.Member{Slot: plan.Slot2, Name: "Bruno"},
	)
	doc.Activities = []plan.Activity{{ID: "act-1", Name: "Hiking", Scope: plan.ScopeShared}}
	doc.Events = []plan.CalendarEvent{{ID: "ev-1", Title: "Dinner", Date: "2025-03-10", Scope: plan.ScopeShared, Recurrence: plan.RecurWeekly}}
	doc.SharedGoals = []plan.Goal{{ID: "g-1", Title: "Trip", Status: plan.StatusNotStarted}}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.NoError(t, v.ValidateJSON(raw))
}

func TestValidator_RejectsMalformedShapes(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"currentUser":`},
		{"missing members", `{"activities":[],"events":[]}`},
		{"wrong collection type", `{"currentUser":{"slot":1,"name":"a"},"partner":{"slot":2,"name":"b"},"activities":"nope","events":[],"sharedGoals":[],"individualGoals":[],"budget":{"monthlyLimit":0},"logs":[]}`},
		{"invalid slot", `{"currentUser":{"slot":3,"name":"a"},"partner":{"slot":2,"name":"b"},"activities":[],"events":[],"sharedGoals":[],"individualGoals":[],"budget":{"monthlyLimit":0},"logs":[]}`},
		{"invalid recurrence", `{"currentUser":{"slot":1,"name":"a"},"partner":{"slot":2,"name":"b"},"activities":[],"events":[{"id":"e","title":"t","date":"2025-01-01","recurrence":"Daily"}],"sharedGoals":[],"individualGoals":[],"budget":{"monthlyLimit":0},"logs":[]}`},
		{"progress out of range", `{"currentUser":{"slot":1,"name":"a"},"partner":{"slot":2,"name":"b"},"activities":[],"events":[],"sharedGoals":[{"id":"g","title":"t","progressPercentage":140,"status":"Completed"}],"individualGoals":[],"budget":{"monthlyLimit":0},"logs":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateJSON([]byte(tt.raw))
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestValidator_OpenToUnknownFields(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(validSnapshot(t), &m))
	m["futureField"] = map[string]any{"x": 1}
	raw, err := json.Marshal(m)
	require.NoError(t, err)

	assert.NoError(t, v.ValidateJSON(raw), "newer clients may add fields")
}

package insight

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/duoplan/duoplan/internal/plan"
)

// TestMonth_Golden pins the full report shape. Regenerate with:
//
//	go test ./internal/insight -update
func TestMonth_Golden(t *testing.T) {
	doc := baseDoc()
	paid := 55.0
	doc.Events = []plan.CalendarEvent{
		{ID: "ev-1", ActivityID: "act-dining", Title: "Dinner", Date: "2025-03-08",
			EstimatedCost: 40, ActualCost: &paid, Recurrence: plan.RecurNone},
		{ID: "ev-2", ActivityID: "act-fitness", Title: "Climbing", Date: "2025-03-15",
			EstimatedCost: 15, Recurrence: plan.RecurNone},
	}

	report := Month(doc, 2025, time.March)

	data, err := json.MarshalIndent(report, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "month_report", append(data, '\n'))
}

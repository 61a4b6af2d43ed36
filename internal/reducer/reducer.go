package reducer

import (
	"fmt"
	"time"

	"github.com/duoplan/duoplan/internal/plan"
)

// Apply runs one action against a document and returns the successor.
//
// The input document is never mutated. Every effective action prepends
// exactly one entry to the activity log (capped at plan.LogCap, oldest
// dropped); the returned entry is that log record, or nil when the action
// was the documented no-op (update/delete matching nothing), in which case
// the returned document is the input unchanged.
func Apply(doc plan.Document, action Action) (plan.Document, *plan.LogEntry) {
	next := doc.Clone()

	description, ok := action.apply(&next)
	if !ok {
		return doc, nil
	}

	m := action.meta()
	entry := plan.LogEntry{
		Description: fmt.Sprintf("%s %s", memberName(doc, m.Author), description),
		Author:      m.Author,
		Timestamp:   m.At.UTC().Format(time.RFC3339),
	}
	prependLog(&next, entry)
	return next, &entry
}

// NewDocument seeds the initial document for a fresh pairing: empty
// collections, zero budget limit. Collections are non-nil so the stored
// JSON carries empty arrays rather than nulls (canonical form forbids null).
func NewDocument(currentUser, partner plan.Member) plan.Document {
	return plan.Document{
		CurrentUser:     currentUser,
		Partner:         partner,
		Activities:      []plan.Activity{},
		Events:          []plan.CalendarEvent{},
		SharedGoals:     []plan.Goal{},
		IndividualGoals: []plan.Goal{},
		Budget:          plan.BudgetConfig{},
		Logs:            []plan.LogEntry{},
	}
}

// prependLog inserts at the front and truncates to the cap immediately,
// oldest entries dropped first.
func prependLog(doc *plan.Document, entry plan.LogEntry) {
	logs := make([]plan.LogEntry, 0, len(doc.Logs)+1)
	logs = append(logs, entry)
	logs = append(logs, doc.Logs...)
	if len(logs) > plan.LogCap {
		logs = logs[:plan.LogCap]
	}
	doc.Logs = logs
}

func memberName(doc plan.Document, slot plan.Slot) string {
	switch slot {
	case doc.CurrentUser.Slot:
		return doc.CurrentUser.Name
	case doc.Partner.Slot:
		return doc.Partner.Name
	default:
		return fmt.Sprintf("member %d", slot)
	}
}

package reducer

import (
	"fmt"
	"time"

	"github.com/duoplan/duoplan/internal/plan"
)

// Meta carries the authorship every action shares. At is supplied by the
// caller so that Apply stays pure; the reducer never reads the wall clock.
type Meta struct {
	Author plan.Slot
	At     time.Time
}

// Action is a user intent against the planner document.
//
// Implementations mutate the already-cloned successor document in place and
// return a log description, or ok=false for the documented silent no-op
// (update/delete of an id that matches nothing).
type Action interface {
	meta() Meta
	apply(doc *plan.Document) (description string, ok bool)
}

// AddActivity inserts a new activity template. The id is caller-supplied and
// assumed unique; collisions are a caller error.
type AddActivity struct {
	Meta
	Activity plan.Activity
}

func (a AddActivity) meta() Meta { return a.Meta }

func (a AddActivity) apply(doc *plan.Document) (string, bool) {
	doc.Activities = append(doc.Activities, a.Activity)
	return fmt.Sprintf("added activity %q", a.Activity.Name), true
}

// UpdateActivity replaces the activity with a matching id.
type UpdateActivity struct {
	Meta
	Activity plan.Activity
}

func (a UpdateActivity) meta() Meta { return a.Meta }

func (a UpdateActivity) apply(doc *plan.Document) (string, bool) {
	for i := range doc.Activities {
		if doc.Activities[i].ID == a.Activity.ID {
			doc.Activities[i] = a.Activity
			return fmt.Sprintf("updated activity %q", a.Activity.Name), true
		}
	}
	return "", false
}

// DeleteActivity removes the activity with the given id. Events that
// reference it keep their copied fields; the category join in insights
// falls back to "Other" once the template is gone.
type DeleteActivity struct {
	Meta
	ID string
}

func (a DeleteActivity) meta() Meta { return a.Meta }

func (a DeleteActivity) apply(doc *plan.Document) (string, bool) {
	for i := range doc.Activities {
		if doc.Activities[i].ID == a.ID {
			name := doc.Activities[i].Name
			doc.Activities = append(doc.Activities[:i], doc.Activities[i+1:]...)
			return fmt.Sprintf("removed activity %q", name), true
		}
	}
	return "", false
}

// AddEvent schedules a calendar event.
type AddEvent struct {
	Meta
	Event plan.CalendarEvent
}

func (a AddEvent) meta() Meta { return a.Meta }

func (a AddEvent) apply(doc *plan.Document) (string, bool) {
	doc.Events = append(doc.Events, a.Event)
	return fmt.Sprintf("scheduled %q on %s", a.Event.Title, a.Event.Date), true
}

// UpdateEvent replaces the event with a matching id.
type UpdateEvent struct {
	Meta
	Event plan.CalendarEvent
}

func (a UpdateEvent) meta() Meta { return a.Meta }

func (a UpdateEvent) apply(doc *plan.Document) (string, bool) {
	for i := range doc.Events {
		if doc.Events[i].ID == a.Event.ID {
			doc.Events[i] = a.Event
			return fmt.Sprintf("updated event %q", a.Event.Title), true
		}
	}
	return "", false
}

// DeleteEvent removes the event with the given id. Deleting a recurrence
// template removes every derived occurrence with it, since occurrences are
// never persisted.
type DeleteEvent struct {
	Meta
	ID string
}

func (a DeleteEvent) meta() Meta { return a.Meta }

func (a DeleteEvent) apply(doc *plan.Document) (string, bool) {
	for i := range doc.Events {
		if doc.Events[i].ID == a.ID {
			title := doc.Events[i].Title
			doc.Events = append(doc.Events[:i], doc.Events[i+1:]...)
			return fmt.Sprintf("removed event %q", title), true
		}
	}
	return "", false
}

// AddGoal inserts a goal. The target collection is chosen by UserSlot:
// zero means shared, a valid slot means individual. Derived progress fields
// on the incoming goal are ignored and recomputed.
type AddGoal struct {
	Meta
	Goal plan.Goal
}

func (a AddGoal) meta() Meta { return a.Meta }

func (a AddGoal) apply(doc *plan.Document) (string, bool) {
	g := a.Goal
	recomputeProgress(&g)
	if g.UserSlot.Valid() {
		doc.IndividualGoals = append(doc.IndividualGoals, g)
	} else {
		doc.SharedGoals = append(doc.SharedGoals, g)
	}
	return fmt.Sprintf("created goal %q", g.Title), true
}

// UpdateGoal replaces the goal with a matching id in whichever collection
// holds it. Derived progress fields are recomputed after the replace.
type UpdateGoal struct {
	Meta
	Goal plan.Goal
}

func (a UpdateGoal) meta() Meta { return a.Meta }

func (a UpdateGoal) apply(doc *plan.Document) (string, bool) {
	if g := findGoal(doc, a.Goal.ID); g != nil {
		*g = a.Goal
		recomputeProgress(g)
		return fmt.Sprintf("updated goal %q", g.Title), true
	}
	return "", false
}

// DeleteGoal removes the goal with the given id from whichever collection
// holds it.
type DeleteGoal struct {
	Meta
	ID string
}

func (a DeleteGoal) meta() Meta { return a.Meta }

func (a DeleteGoal) apply(doc *plan.Document) (string, bool) {
	if title, ok := removeGoal(&doc.SharedGoals, a.ID); ok {
		return fmt.Sprintf("removed goal %q", title), true
	}
	if title, ok := removeGoal(&doc.IndividualGoals, a.ID); ok {
		return fmt.Sprintf("removed goal %q", title), true
	}
	return "", false
}

// AddContribution appends a contribution to a financial goal and recomputes
// its progress. Contributions are append-only; there is no edit or delete.
type AddContribution struct {
	Meta
	GoalID       string
	Contribution plan.GoalContribution
}

func (a AddContribution) meta() Meta { return a.Meta }

func (a AddContribution) apply(doc *plan.Document) (string, bool) {
	g := findGoal(doc, a.GoalID)
	if g == nil {
		return "", false
	}
	g.Contributions = append(g.Contributions, a.Contribution)
	recomputeProgress(g)
	return fmt.Sprintf("contributed %.2f to %q", a.Contribution.Amount, g.Title), true
}

// AddTask appends a checklist task to a goal and recomputes its progress.
type AddTask struct {
	Meta
	GoalID string
	Task   plan.GoalTask
}

func (a AddTask) meta() Meta { return a.Meta }

func (a AddTask) apply(doc *plan.Document) (string, bool) {
	g := findGoal(doc, a.GoalID)
	if g == nil {
		return "", false
	}
	g.Tasks = append(g.Tasks, a.Task)
	recomputeProgress(g)
	return fmt.Sprintf("added task %q to %q", a.Task.Title, g.Title), true
}

// ToggleTask flips a task's done state and recomputes goal progress.
type ToggleTask struct {
	Meta
	GoalID string
	TaskID string
}

func (a ToggleTask) meta() Meta { return a.Meta }

func (a ToggleTask) apply(doc *plan.Document) (string, bool) {
	g := findGoal(doc, a.GoalID)
	if g == nil {
		return "", false
	}
	for i := range g.Tasks {
		if g.Tasks[i].ID == a.TaskID {
			g.Tasks[i].Done = !g.Tasks[i].Done
			recomputeProgress(g)
			verb := "reopened"
			if g.Tasks[i].Done {
				verb = "completed"
			}
			return fmt.Sprintf("%s task %q in %q", verb, g.Tasks[i].Title, g.Title), true
		}
	}
	return "", false
}

// DeleteTask removes a checklist task and recomputes goal progress.
type DeleteTask struct {
	Meta
	GoalID string
	TaskID string
}

func (a DeleteTask) meta() Meta { return a.Meta }

func (a DeleteTask) apply(doc *plan.Document) (string, bool) {
	g := findGoal(doc, a.GoalID)
	if g == nil {
		return "", false
	}
	for i := range g.Tasks {
		if g.Tasks[i].ID == a.TaskID {
			title := g.Tasks[i].Title
			g.Tasks = append(g.Tasks[:i], g.Tasks[i+1:]...)
			recomputeProgress(g)
			return fmt.Sprintf("removed task %q from %q", title, g.Title), true
		}
	}
	return "", false
}

// SetBudgetLimit replaces the monthly spending limit.
type SetBudgetLimit struct {
	Meta
	Limit float64
}

func (a SetBudgetLimit) meta() Meta { return a.Meta }

func (a SetBudgetLimit) apply(doc *plan.Document) (string, bool) {
	doc.Budget.MonthlyLimit = a.Limit
	return fmt.Sprintf("set monthly budget to %.2f", a.Limit), true
}

func findGoal(doc *plan.Document, id string) *plan.Goal {
	for i := range doc.SharedGoals {
		if doc.SharedGoals[i].ID == id {
			return &doc.SharedGoals[i]
		}
	}
	for i := range doc.IndividualGoals {
		if doc.IndividualGoals[i].ID == id {
			return &doc.IndividualGoals[i]
		}
	}
	return nil
}

func removeGoal(goals *[]plan.Goal, id string) (string, bool) {
	for i := range *goals {
		if (*goals)[i].ID == id {
			title := (*goals)[i].Title
			*goals = append((*goals)[:i], (*goals)[i+1:]...)
			return title, true
		}
	}
	return "", false
}

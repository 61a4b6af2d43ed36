package plan

// Slot identifies one of the two members of a pairing. Valid values are 1
// and 2; the value is stable for the lifetime of the pairing.
type Slot int

const (
	Slot1 Slot = 1
	Slot2 Slot = 2
)

// Valid reports whether s is one of the two pairing slots.
func (s Slot) Valid() bool { return s == Slot1 || s == Slot2 }

// Member is one of the two people sharing a document.
type Member struct {
	Slot Slot   `json:"slot"`
	Name string `json:"name"`
}

// OwnershipScope distinguishes entries shared by the pairing from entries
// belonging to a single member.
type OwnershipScope string

const (
	ScopeShared     OwnershipScope = "Shared"
	ScopeIndividual OwnershipScope = "Individual"
)

// RecurrenceRule names how a calendar event repeats. The stored event is the
// template instance; concrete occurrences are derived on read and never
// persisted.
type RecurrenceRule string

const (
	RecurNone    RecurrenceRule = "None"
	RecurWeekly  RecurrenceRule = "Weekly"
	RecurMonthly RecurrenceRule = "Monthly"
	RecurYearly  RecurrenceRule = "Yearly"
)

// GoalStatus is the derived completion state of a goal. It is recomputed by
// the reducer on every contribution/task mutation and never set directly.
type GoalStatus string

const (
	StatusNotStarted GoalStatus = "Not Started"
	StatusInProgress GoalStatus = "In Progress"
	StatusCompleted  GoalStatus = "Completed"
)

// Activity is a reusable template for calendar events. Events reference it
// by id and copy its fields on selection; later edits to the template do not
// propagate to existing events.
type Activity struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	CostCategory    string         `json:"costCategory"`
	EstimatedCost   float64        `json:"estimatedCost"`
	DurationMinutes int            `json:"durationMinutes"`
	EnergyLevel     string         `json:"energyLevel"`
	Setting         string         `json:"setting"` // "Indoor" | "Outdoor"
	Type            string         `json:"type"`
	Notes           string         `json:"notes,omitempty"`
	Scope           OwnershipScope `json:"scope"`
	TargetSlot      Slot           `json:"targetSlot,omitempty"` // set when Scope is Individual
}

// CalendarEvent is a dated occurrence, optionally derived from an Activity.
// Its cost/time/ownership fields are its own and may diverge from the
// template after creation.
//
// Date accepts either a date-only string (YYYY-MM-DD) or a full timestamp;
// the recurrence projector normalizes both to a calendar date.
type CalendarEvent struct {
	ID              string         `json:"id"`
	ActivityID      string         `json:"activityId,omitempty"`
	Title           string         `json:"title"`
	Date            string         `json:"date"`
	EstimatedCost   float64        `json:"estimatedCost"`
	ActualCost      *float64       `json:"actualCost,omitempty"`
	DurationMinutes int            `json:"durationMinutes"`
	CostCategory    string         `json:"costCategory,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	Scope           OwnershipScope `json:"scope"`
	TargetSlot      Slot           `json:"targetSlot,omitempty"`
	Recurrence      RecurrenceRule `json:"recurrence"`
}

// GoalContribution is an append-only record of money put toward a financial
// goal. The goal's current amount is always the sum of its contributions.
type GoalContribution struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Author Slot    `json:"author"`
	Date   string  `json:"date"`
}

// GoalTask is one checklist item of a task goal.
type GoalTask struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Done    bool   `json:"done"`
	DueDate string `json:"dueDate,omitempty"`
	DueTime string `json:"dueTime,omitempty"`
}

// Goal is either shared (UserSlot zero) or individual (UserSlot set), and
// either financial (FinancialTarget > 0, progress from contributions) or a
// checklist (progress from tasks).
//
// ProgressPercentage and Status are derived caches maintained by the reducer.
// They are stored for rendering but never trusted as inputs.
type Goal struct {
	ID                 string             `json:"id"`
	UserSlot           Slot               `json:"userSlot,omitempty"`
	Title              string             `json:"title"`
	Category           string             `json:"category"`
	TargetDate         string             `json:"targetDate,omitempty"`
	TargetTime         string             `json:"targetTime,omitempty"`
	FinancialTarget    float64            `json:"financialTarget,omitempty"`
	Contributions      []GoalContribution `json:"contributions,omitempty"`
	Tasks              []GoalTask         `json:"tasks,omitempty"`
	ProgressPercentage float64            `json:"progressPercentage"`
	Status             GoalStatus         `json:"status"`
}

// LogEntry records one mutation for the activity feed. Entries are
// observational only; no logic reads them back.
type LogEntry struct {
	Description string `json:"description"`
	Author      Slot   `json:"author"`
	Timestamp   string `json:"timestamp"` // RFC 3339
}

// LogCap bounds the activity log. Entries are most-recent-first; inserting
// past the cap drops the oldest.
const LogCap = 50

// BudgetConfig holds the single monthly spending limit. Mutation is a
// direct replace.
type BudgetConfig struct {
	MonthlyLimit float64 `json:"monthlyLimit"`
}

// Document is the root planner state shared by a pairing.
type Document struct {
	CurrentUser     Member          `json:"currentUser"`
	Partner         Member          `json:"partner"`
	Activities      []Activity      `json:"activities"`
	Events          []CalendarEvent `json:"events"`
	SharedGoals     []Goal          `json:"sharedGoals"`
	IndividualGoals []Goal          `json:"individualGoals"`
	Budget          BudgetConfig    `json:"budget"`
	Logs            []LogEntry      `json:"logs"`
}

// ActivityByID returns the activity with the given id, or nil.
func (d *Document) ActivityByID(id string) *Activity {
	for i := range d.Activities {
		if d.Activities[i].ID == id {
			return &d.Activities[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the document. The reducer treats documents as
// immutable values; Clone is the only sanctioned way to derive a mutable
// successor.
func (d Document) Clone() Document {
	out := d
	out.Activities = append([]Activity(nil), d.Activities...)
	out.Events = cloneEvents(d.Events)
	out.SharedGoals = cloneGoals(d.SharedGoals)
	out.IndividualGoals = cloneGoals(d.IndividualGoals)
	out.Logs = append([]LogEntry(nil), d.Logs...)
	return out
}

func cloneEvents(events []CalendarEvent) []CalendarEvent {
	if events == nil {
		return nil
	}
	out := make([]CalendarEvent, len(events))
	for i, ev := range events {
		out[i] = ev
		if ev.ActualCost != nil {
			v := *ev.ActualCost
			out[i].ActualCost = &v
		}
	}
	return out
}

func cloneGoals(goals []Goal) []Goal {
	if goals == nil {
		return nil
	}
	out := make([]Goal, len(goals))
	for i, g := range goals {
		out[i] = g
		out[i].Contributions = append([]GoalContribution(nil), g.Contributions...)
		out[i].Tasks = append([]GoalTask(nil), g.Tasks...)
	}
	return out
}

package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/recur"
	"github.com/duoplan/duoplan/internal/reducer"
)

type eventFlags struct {
	Title           string
	Date            string
	ActivityID      string
	EstimatedCost   float64
	ActualCost      float64
	DurationMinutes int
	Category        string
	Notes           string
	Recurrence      string
	Individual      bool
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Title, "title", "", "event title")
	cmd.Flags().StringVar(&f.Date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.ActivityID, "activity", "", "activity template id this event came from")
	cmd.Flags().Float64Var(&f.EstimatedCost, "cost", 0, "estimated cost")
	cmd.Flags().Float64Var(&f.ActualCost, "actual", 0, "actual cost, once known")
	cmd.Flags().IntVar(&f.DurationMinutes, "duration", 0, "duration in minutes")
	cmd.Flags().StringVar(&f.Category, "category", "", "cost category override")
	cmd.Flags().StringVar(&f.Notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&f.Recurrence, "repeat", string(plan.RecurNone), "None, Weekly, Monthly or Yearly")
	cmd.Flags().BoolVar(&f.Individual, "individual", false, "owned by you rather than shared")
}

func (f *eventFlags) apply(cmd *cobra.Command, s *session, ev *plan.CalendarEvent) error {
	rule := plan.RecurrenceRule(f.Recurrence)
	switch rule {
	case plan.RecurNone, plan.RecurWeekly, plan.RecurMonthly, plan.RecurYearly:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown --repeat value %q", f.Recurrence))
	}

	ev.Title = f.Title
	ev.Date = f.Date
	ev.ActivityID = f.ActivityID
	ev.EstimatedCost = f.EstimatedCost
	ev.DurationMinutes = f.DurationMinutes
	ev.CostCategory = f.Category
	ev.Notes = f.Notes
	ev.Recurrence = rule
	if cmd.Flags().Changed("actual") {
		actual := f.ActualCost
		ev.ActualCost = &actual
	}
	if f.Individual {
		ev.Scope = plan.ScopeIndividual
		ev.TargetSlot = s.cfg.MemberSlot()
	} else {
		ev.Scope = plan.ScopeShared
		ev.TargetSlot = 0
	}
	return nil
}

// NewEventCommand creates the event command group.
func NewEventCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Manage calendar events",
	}
	cmd.AddCommand(newEventAddCommand(rootOpts))
	cmd.AddCommand(newEventSetCommand(rootOpts))
	cmd.AddCommand(newEventRmCommand(rootOpts))
	cmd.AddCommand(newEventListCommand(rootOpts))
	return cmd
}

func newEventAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &eventFlags{}

	cmd := &cobra.Command{
		Use:           "add",
		Short:         "Add a calendar event",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.Title == "" || flags.Date == "" {
				return NewExitError(ExitCommandError, "--title and --date are required")
			}
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			event := plan.CalendarEvent{ID: uuid.NewString()}
			if err := flags.apply(cmd, s, &event); err != nil {
				return err
			}

			_, rev, err := s.dispatch(cmd.Context(), reducer.AddEvent{Meta: s.meta(), Event: event})
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(fmt.Sprintf("added event %s on %s (%s) at rev %d", event.Title, event.Date, event.ID, rev))
		},
	}
	flags.register(cmd)
	return cmd
}

func newEventSetCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &eventFlags{}

	cmd := &cobra.Command{
		Use:           "set <id>",
		Short:         "Replace a calendar event's fields",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			event := plan.CalendarEvent{ID: args[0]}
			if err := flags.apply(cmd, s, &event); err != nil {
				return err
			}

			_, rev, err := s.dispatch(cmd.Context(), reducer.UpdateEvent{Meta: s.meta(), Event: event})
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(fmt.Sprintf("updated event %s at rev %d", args[0], rev))
		},
	}
	flags.register(cmd)
	return cmd
}

func newEventRmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <id>",
		Short:         "Remove a calendar event",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			_, rev, err := s.dispatch(cmd.Context(), reducer.DeleteEvent{Meta: s.meta(), ID: args[0]})
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(fmt.Sprintf("removed event %s at rev %d", args[0], rev))
		},
	}
}

func newEventListCommand(rootOpts *RootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List calendar events, expanding recurring ones over a window",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			env, err := s.fetch(cmd.Context())
			if err != nil {
				return err
			}

			events := env.Doc.Events
			if from != "" || to != "" {
				start, serr := recur.ParseDate(from)
				if serr != nil {
					return WrapExitError(ExitCommandError, "parse --from", serr)
				}
				end, eerr := recur.ParseDate(to)
				if eerr != nil {
					return WrapExitError(ExitCommandError, "parse --to", eerr)
				}
				events = recur.Project(events, start, end)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if rootOpts.Format == "json" {
				return out.SuccessJSON(events)
			}
			for _, ev := range events {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s %-24s $%.2f\n", ev.ID, ev.Date, ev.Title, ev.EstimatedCost)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "window start (YYYY-MM-DD); with --to, expands recurring events")
	cmd.Flags().StringVar(&to, "to", "", "window end (YYYY-MM-DD), inclusive")
	return cmd
}

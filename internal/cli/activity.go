package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/reducer"
)

// activityFlags holds the editable fields shared by add and set.
type activityFlags struct {
	Name            string
	Category        string
	EstimatedCost   float64
	DurationMinutes int
	EnergyLevel     string
	Setting         string
	Type            string
	Notes           string
	Individual      bool
}

func (f *activityFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Name, "name", "", "activity name")
	cmd.Flags().StringVar(&f.Category, "category", "", "cost category")
	cmd.Flags().Float64Var(&f.EstimatedCost, "cost", 0, "estimated cost")
	cmd.Flags().IntVar(&f.DurationMinutes, "duration", 0, "duration in minutes")
	cmd.Flags().StringVar(&f.EnergyLevel, "energy", "", "energy level")
	cmd.Flags().StringVar(&f.Setting, "setting", "", "Indoor or Outdoor")
	cmd.Flags().StringVar(&f.Type, "type", "", "activity type")
	cmd.Flags().StringVar(&f.Notes, "notes", "", "free-form notes")
	cmd.Flags().BoolVar(&f.Individual, "individual", false, "owned by you rather than shared")
}

func (f *activityFlags) apply(s *session, a *plan.Activity) {
	a.Name = f.Name
	a.CostCategory = f.Category
	a.EstimatedCost = f.EstimatedCost
	a.DurationMinutes = f.DurationMinutes
	a.EnergyLevel = f.EnergyLevel
	a.Setting = f.Setting
	a.Type = f.Type
	a.Notes = f.Notes
	if f.Individual {
		a.Scope = plan.ScopeIndividual
		a.TargetSlot = s.cfg.MemberSlot()
	} else {
		a.Scope = plan.ScopeShared
		a.TargetSlot = 0
	}
}

// NewActivityCommand creates the activity command group.
func NewActivityCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Manage reusable activity templates",
	}
	cmd.AddCommand(newActivityAddCommand(rootOpts))
	cmd.AddCommand(newActivitySetCommand(rootOpts))
	cmd.AddCommand(newActivityRmCommand(rootOpts))
	cmd.AddCommand(newActivityListCommand(rootOpts))
	return cmd
}

func newActivityAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &activityFlags{}

	cmd := &cobra.Command{
		Use:           "add",
		Short:         "Add an activity template",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.Name == "" {
				return NewExitError(ExitCommandError, "--name is required")
			}
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			activity := plan.Activity{ID: uuid.NewString()}
			flags.apply(s, &activity)

			_, rev, err := s.dispatch(cmd.Context(), reducer.AddActivity{Meta: s.meta(), Activity: activity})
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(fmt.Sprintf("added activity %s (%s) at rev %d", activity.Name, activity.ID, rev))
		},
	}
	flags.register(cmd)
	return cmd
}

func newActivitySetCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &activityFlags{}

	cmd := &cobra.Command{
		Use:           "set <id>",
		Short:         "Replace an activity template's fields",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			activity := plan.Activity{ID: args[0]}
			flags.apply(s, &activity)

			doc, rev, err := s.dispatch(cmd.Context(), reducer.UpdateActivity{Meta: s.meta(), Activity: activity})
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if doc.ActivityByID(args[0]) == nil {
				return out.Success(fmt.Sprintf("no activity %s; nothing changed (rev %d)", args[0], rev))
			}
			return out.Success(fmt.Sprintf("updated activity %s at rev %d", args[0], rev))
		},
	}
	flags.register(cmd)
	return cmd
}

func newActivityRmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <id>",
		Short:         "Remove an activity template",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			_, rev, err := s.dispatch(cmd.Context(), reducer.DeleteActivity{Meta: s.meta(), ID: args[0]})
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(fmt.Sprintf("removed activity %s at rev %d", args[0], rev))
		},
	}
}

func newActivityListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List activity templates",
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

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if rootOpts.Format == "json" {
				return out.SuccessJSON(env.Doc.Activities)
			}
			for _, a := range env.Doc.Activities {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s %-12s $%.2f\n", a.ID, a.Name, a.CostCategory, a.EstimatedCost)
			}
			return nil
		},
	}
}

package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/reducer"
)

// NewGoalCommand creates the goal command group.
func NewGoalCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage shared and individual goals",
	}
	cmd.AddCommand(newGoalAddCommand(rootOpts))
	cmd.AddCommand(newGoalRmCommand(rootOpts))
	cmd.AddCommand(newGoalContributeCommand(rootOpts))
	cmd.AddCommand(newGoalTaskCommand(rootOpts))
	cmd.AddCommand(newGoalListCommand(rootOpts))
	return cmd
}

func newGoalAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		category   string
		target     float64
		targetDate string
		individual bool
	)

	cmd := &cobra.Command{
		Use:           "add <title>",
		Short:         "Add a goal (financial when --target is set, checklist otherwise)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			goal := plan.Goal{
				ID:              uuid.NewString(),
				Title:           args[0],
				Category:        category,
				TargetDate:      targetDate,
				FinancialTarget: target,
			}
			if individual {
				goal.UserSlot = s.cfg.MemberSlot()
			}

			_, rev, err := s.dispatch(cmd.Context(), reducer.AddGoal{Meta: s.meta(), Goal: goal})
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(fmt.Sprintf("added goal %s (%s) at rev %d", goal.Title, goal.ID, rev))
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "goal category")
	cmd.Flags().Float64Var(&target, "target", 0, "financial target amount")
	cmd.Flags().StringVar(&targetDate, "by", "", "target date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&individual, "individual", false, "owned by you rather than shared")
	return cmd
}

func newGoalRmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <id>",
		Short:         "Remove a goal",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			_, rev, err := s.dispatch(cmd.Context(), reducer.DeleteGoal{Meta: s.meta(), ID: args[0]})
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(fmt.Sprintf("removed goal %s at rev %d", args[0], rev))
		},
	}
}

func newGoalContributeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "contribute <goal-id> <amount>",
		Short:         "Record a contribution toward a financial goal",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var amount float64
			if _, err := fmt.Sscanf(args[1], "%f", &amount); err != nil {
				return WrapExitError(ExitCommandError, "parse amount", err)
			}

			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			contribution := plan.GoalContribution{
				ID:     uuid.NewString(),
				Amount: amount,
				Author: s.cfg.MemberSlot(),
				Date:   time.Now().UTC().Format("2006-01-02"),
			}
			doc, rev, err := s.dispatch(cmd.Context(), reducer.AddContribution{
				Meta: s.meta(), GoalID: args[0], Contribution: contribution,
			})
			if err != nil {
				return err
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if g := findGoalIn(doc, args[0]); g != nil {
				return out.Success(fmt.Sprintf("contributed %.2f to %s: now %.0f%% (%s) at rev %d",
					amount, g.Title, g.ProgressPercentage, g.Status, rev))
			}
			return out.Success(fmt.Sprintf("no goal %s; nothing changed (rev %d)", args[0], rev))
		},
	}
}

func newGoalTaskCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage checklist items on a goal",
	}

	var dueDate string
	add := &cobra.Command{
		Use:           "add <goal-id> <title>",
		Short:         "Add a checklist item",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			task := plan.GoalTask{ID: uuid.NewString(), Title: args[1], DueDate: dueDate}
			_, rev, err := s.dispatch(cmd.Context(), reducer.AddTask{Meta: s.meta(), GoalID: args[0], Task: task})
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(fmt.Sprintf("added task %s (%s) at rev %d", task.Title, task.ID, rev))
		},
	}
	add.Flags().StringVar(&dueDate, "due", "", "due date (YYYY-MM-DD)")

	toggle := &cobra.Command{
		Use:           "toggle <goal-id> <task-id>",
		Short:         "Toggle a checklist item done/undone",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			doc, rev, err := s.dispatch(cmd.Context(), reducer.ToggleTask{Meta: s.meta(), GoalID: args[0], TaskID: args[1]})
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if g := findGoalIn(doc, args[0]); g != nil {
				return out.Success(fmt.Sprintf("toggled task: %s now %.0f%% (%s) at rev %d",
					g.Title, g.ProgressPercentage, g.Status, rev))
			}
			return out.Success(fmt.Sprintf("no goal %s; nothing changed (rev %d)", args[0], rev))
		},
	}

	rm := &cobra.Command{
		Use:           "rm <goal-id> <task-id>",
		Short:         "Remove a checklist item",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			_, rev, err := s.dispatch(cmd.Context(), reducer.DeleteTask{Meta: s.meta(), GoalID: args[0], TaskID: args[1]})
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(fmt.Sprintf("removed task %s at rev %d", args[1], rev))
		},
	}

	cmd.AddCommand(add, toggle, rm)
	return cmd
}

func newGoalListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List goals with progress",
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
				return out.SuccessJSON(map[string][]plan.Goal{
					"shared":     env.Doc.SharedGoals,
					"individual": env.Doc.IndividualGoals,
				})
			}
			for _, g := range env.Doc.SharedGoals {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s %3.0f%%  %s\n", g.ID, g.Title, g.ProgressPercentage, g.Status)
			}
			for _, g := range env.Doc.IndividualGoals {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s %3.0f%%  %s (slot %d)\n", g.ID, g.Title, g.ProgressPercentage, g.Status, g.UserSlot)
			}
			return nil
		},
	}
}

// findGoalIn searches both goal collections of a document.
func findGoalIn(doc plan.Document, id string) *plan.Goal {
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

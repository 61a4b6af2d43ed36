package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/duoplan/duoplan/internal/reducer"
)

// NewBudgetCommand creates the budget command group.
func NewBudgetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show or set the shared monthly budget limit",
	}

	show := &cobra.Command{
		Use:           "show",
		Short:         "Show the monthly limit",
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
				return out.SuccessJSON(env.Doc.Budget)
			}
			return out.Success(fmt.Sprintf("monthly limit: %.2f", env.Doc.Budget.MonthlyLimit))
		},
	}

	set := &cobra.Command{
		Use:           "set <amount>",
		Short:         "Set the monthly limit",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "parse amount", err)
			}

			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			_, rev, err := s.dispatch(cmd.Context(), reducer.SetBudgetLimit{Meta: s.meta(), Limit: limit})
			if err != nil {
				return err
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(fmt.Sprintf("monthly limit set to %.2f at rev %d", limit, rev))
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

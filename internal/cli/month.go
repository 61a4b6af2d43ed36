package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/duoplan/duoplan/internal/insight"
)

// NewMonthCommand creates the month insight command.
func NewMonthCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		year  int
		month int
	)

	cmd := &cobra.Command{
		Use:           "month",
		Short:         "Spending report for one month: totals, categories, week buckets",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}
			if month < 1 || month > 12 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid month %d", month))
			}

			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			env, err := s.fetch(cmd.Context())
			if err != nil {
				return err
			}

			report := insight.Month(env.Doc, year, time.Month(month))

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if rootOpts.Format == "json" {
				return out.SuccessJSON(report)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %d: %d events\n", time.Month(month), year, report.EventCount)
			fmt.Fprintf(w, "actual %.2f / estimated %.2f", report.TotalActual, report.TotalEstimated)
			if report.MonthlyLimit > 0 {
				fmt.Fprintf(w, " (limit %.2f, remaining %.2f)", report.MonthlyLimit, report.Remaining)
			}
			fmt.Fprintln(w)
			for _, c := range report.ByCategory {
				fmt.Fprintf(w, "  %-16s %.2f\n", c.Category, c.Actual)
			}
			for i, spend := range report.ByWeek {
				if spend != 0 {
					fmt.Fprintf(w, "  week %d: %.2f\n", i+1, spend)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (defaults to current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (defaults to current)")
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogCommand creates the log command: the shared activity feed, newest
// first, capped at the document's retained window.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "log",
		Short:         "Show the shared change feed",
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

			logs := env.Doc.Logs
			if limit > 0 && limit < len(logs) {
				logs = logs[:limit]
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if rootOpts.Format == "json" {
				return out.SuccessJSON(logs)
			}
			for _, entry := range logs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", entry.Timestamp, entry.Description)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many entries")
	return cmd
}

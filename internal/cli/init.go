package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/reducer"
)

// NewInitCommand creates the init command. It seeds the configured pairing
// with an empty document: both members, empty collections, budget limit 0.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "init",
		Short:         "Seed the configured pairing with an empty planner document",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.requirePairing(); err != nil {
				return err
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: rootOpts.Verbose}
			ctx := cmd.Context()

			if env, err := s.store.Fetch(ctx, s.cfg.PairingID); err != nil {
				return WrapExitError(ExitCommandError, "fetch document", err)
			} else if env != nil {
				return NewExitError(ExitFailure, fmt.Sprintf("pairing %s already initialized at rev %d", s.cfg.PairingID, env.Rev))
			}

			seed := reducer.NewDocument(
				plan.Member{Slot: s.cfg.MemberSlot(), Name: s.cfg.Member.Name},
				plan.Member{Slot: s.cfg.PartnerSlot(), Name: s.cfg.Partner.Name},
			)
			rev, err := s.store.Upsert(ctx, s.cfg.PairingID, seed)
			if err != nil {
				return WrapExitError(ExitCommandError, "seed document", err)
			}

			return out.Success(fmt.Sprintf("initialized pairing %s at rev %d", s.cfg.PairingID, rev))
		},
	}
}

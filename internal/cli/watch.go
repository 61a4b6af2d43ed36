package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/duoplan/duoplan/internal/engine"
	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/reducer"
	"github.com/duoplan/duoplan/internal/schema"
)

// NewWatchCommand creates the watch command: run the sync engine against
// the configured store and print each adopted remote change until
// interrupted. This is the live counterpart of the one-shot commands.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "watch",
		Short:         "Run the sync engine and print partner changes as they arrive",
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

			validator, err := schema.NewValidator()
			if err != nil {
				return WrapExitError(ExitCommandError, "build validator", err)
			}

			w := cmd.OutOrStdout()
			opts := []engine.Option{
				engine.WithValidator(validator),
				engine.WithDebounce(s.cfg.Debounce()),
				engine.WithLogger(s.logger),
				engine.OnRemoteApply(func(doc plan.Document) {
					if len(doc.Logs) > 0 {
						fmt.Fprintf(w, "partner: %s\n", doc.Logs[0].Description)
					} else {
						fmt.Fprintln(w, "partner: document updated")
					}
				}),
				engine.OnError(func(se *engine.SyncError) {
					fmt.Fprintf(cmd.ErrOrStderr(), "sync error [%s] during %s: %v\n", se.Code, se.Op, se.Err)
				}),
			}
			if s.cache != nil {
				opts = append(opts, engine.WithCache(s.cache))
			}

			eng := engine.New(s.store, opts...)
			defer eng.Close()

			seed := reducer.NewDocument(
				plan.Member{Slot: s.cfg.MemberSlot(), Name: s.cfg.Member.Name},
				plan.Member{Slot: s.cfg.PartnerSlot(), Name: s.cfg.Partner.Name},
			)
			if err := eng.Start(cmd.Context(), s.cfg.PairingID, seed); err != nil {
				// Disconnected start still watches; the engine retries as
				// pushes and dispatches arrive.
				fmt.Fprintf(cmd.ErrOrStderr(), "starting disconnected: %v\n", err)
			}

			fmt.Fprintf(w, "watching pairing %s (state %s, rev %d); ctrl-c to stop\n",
				s.cfg.PairingID, eng.State(), eng.Rev())

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			select {
			case <-sigCh:
			case <-cmd.Context().Done():
			}
			return nil
		},
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/duoplan/duoplan/internal/httpstore"
)

// NewServeCommand creates the serve command: expose the configured store
// over HTTP so both members' clients can point their http backend at it.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Serve the document API over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			srv := &http.Server{
				Addr:    addr,
				Handler: httpstore.NewServer(s.store, s.cfg.Token, s.logger).Handler(),
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "serving %s backend on %s\n", s.cfg.Backend, addr)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return WrapExitError(ExitCommandError, "serve", err)
			case <-sigCh:
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return WrapExitError(ExitCommandError, "shutdown", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8600", "listen address")
	return cmd
}

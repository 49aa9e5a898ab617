package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stablecore-labs/stablecore/internal/server"
	"github.com/stablecore-labs/stablecore/internal/watcher"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the module system with the HTTP API and source watcher",
		Long: `Serve activates the configured modules, then runs the HTTP API and
(optionally) the modules-directory watcher until interrupted. Edits to
.star files in the modules directory are compiled, validated, and
hot-swapped into the running process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, cleanup, err := NewRuntime(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := rt.Registry.ActivateDir(ctx, rt.Config.ModulesDir); err != nil {
				return err
			}

			eg, egctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				return server.New(rt.Registry, rt.Config.Listen, rt.Logger).Serve(egctx)
			})
			if rt.Config.Watch {
				w := watcher.New(rt.Registry, rt.Config.ModulesDir, rt.Logger)
				eg.Go(func() error {
					return w.Run(egctx)
				})
			}
			return eg.Wait()
		},
	}
}

// Package cli provides the command-line interface for StableCore.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stablecore-labs/stablecore/internal/cli/commands"
	"github.com/stablecore-labs/stablecore/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stablecore",
		Short: "StableCore - runtime module hot-reload system",
		Long: `StableCore manages runtime replacement of Starlark modules inside a
long-running process. Core modules are frozen for the process lifetime;
dynamic modules are compiled, validated, and hot-swapped live, with
automatic rollback when a swap fails verification.`,
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			logger := config.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			cmd.SetContext(commands.WithRuntime(cmd.Context(), cfg, logger))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default stablecore.yaml)")
	flags.String("modules-dir", config.DefaultModulesDir, "directory of dynamic module sources")
	flags.String("staging-dir", config.DefaultStagingDir, "directory for staged artifacts and backups")
	flags.String("state-path", config.DefaultStatePath, "SQLite state database path (empty disables persistence)")
	flags.String("listen", config.DefaultListen, "HTTP API listen address")
	flags.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", config.DefaultLogFormat, "log format (text, json)")

	rootCmd.AddCommand(
		commands.NewServeCommand(),
		commands.NewStatusCommand(),
		commands.NewUpdateCommand(),
		commands.NewCompileCommand(),
		commands.NewValidateCommand(),
		commands.NewBackupsCommand(),
	)
	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

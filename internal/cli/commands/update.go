package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stablecore-labs/stablecore/pkg/core"
)

// NewUpdateCommand creates the update command.
func NewUpdateCommand() *cobra.Command {
	var sourceFile string

	cmd := &cobra.Command{
		Use:   "update <module>",
		Short: "Compile, validate, and hot-swap a dynamic module",
		Example: `  # Update from a file
  stablecore update widgets --file widgets.star

  # Update from stdin
  cat widgets.star | stablecore update widgets`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd, sourceFile)
			if err != nil {
				return err
			}

			rt, cleanup, err := NewRuntime(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			result := rt.Registry.UpdateModule(args[0], source)
			printDiagnostics(cmd.OutOrStdout(), result.Diagnostics)
			if !result.Success {
				return fmt.Errorf("update failed at stage %s: %s", result.FailedStage, result.ErrorMessage)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "module %s updated (artifact %s)\n", args[0], result.ArtifactLocation)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceFile, "file", "f", "", "module source file (default stdin)")
	return cmd
}

// readSource reads module source from a file or from stdin.
func readSource(cmd *cobra.Command, path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read source from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-supplied CLI path
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}
	return string(data), nil
}

func printDiagnostics(w io.Writer, diags []core.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
	}
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	var sourceFile string

	cmd := &cobra.Command{
		Use:   "compile <module>",
		Short: "Compile module source into a staged artifact",
		Long: `Compile parses module source and stages the compiled artifact without
validating or activating it. The staged artifact location is printed on
success.`,
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

			result := rt.Registry.CompileModule(args[0], source)
			printDiagnostics(cmd.OutOrStdout(), result.Diagnostics)
			if !result.Success {
				return fmt.Errorf("compilation failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.ArtifactLocation)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceFile, "file", "f", "", "module source file (default stdin)")
	return cmd
}

package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/stablecore-labs/stablecore/pkg/core"
)

var (
	healthyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	unhealthyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	issueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show module catalog status and system health",
		Long: `Status activates the configured modules locally, then prints the
module catalog and the recomputed system health.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, cleanup, err := NewRuntime(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := rt.Registry.ActivateDir(cmd.Context(), rt.Config.ModulesDir); err != nil {
				return err
			}

			status := rt.Registry.GetModuleStatus()
			health := rt.Registry.GetSystemHealth()

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"status": status, "health": health})
			}

			renderStatus(cmd.OutOrStdout(), status, health)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "output format (table, json)")
	return cmd
}

func renderStatus(w io.Writer, status core.ModuleStatus, health core.SystemHealth) {
	fmt.Fprintf(w, "StableCore %s (%d modules)\n\n", status.CoreVersion, status.TotalModules)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Module", "Stability", "Version", "Status", "Loaded"})
	for _, rec := range status.CoreModules {
		t.AppendRow(moduleRow(rec))
	}
	for _, rec := range status.DynamicModules {
		t.AppendRow(moduleRow(rec))
	}
	t.Render()

	fmt.Fprintln(w)
	if health.IsHealthy {
		fmt.Fprintln(w, healthyStyle.Render("healthy"))
		return
	}
	fmt.Fprintln(w, unhealthyStyle.Render("unhealthy"))
	for _, issue := range health.Issues {
		fmt.Fprintln(w, issueStyle.Render("  - "+issue))
	}
}

func moduleRow(rec core.ModuleRecord) table.Row {
	loaded := ""
	if !rec.LoadedAt.IsZero() {
		loaded = rec.LoadedAt.Format("2006-01-02 15:04:05")
	}
	return table.Row{rec.Name, rec.Stability.String(), rec.Version, string(rec.Status), loaded}
}

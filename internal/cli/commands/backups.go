package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewBackupsCommand creates the backups command.
func NewBackupsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List persisted pre-swap backup snapshots",
		Long: `Backups lists the backup snapshots recorded in the state database,
newest first. Requires persistence to be enabled (state_path).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, cleanup, err := NewRuntime(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if rt.Store == nil {
				return fmt.Errorf("persistence is disabled, no backup history available")
			}

			backups, err := rt.Store.ListBackups()
			if err != nil {
				return err
			}
			if limit > 0 && len(backups) > limit {
				backups = backups[:limit]
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Module", "Original", "Backup", "Created", "Empty"})
			for _, b := range backups {
				t.AppendRow(table.Row{
					b.ModuleName,
					b.OriginalLocation,
					b.BackupLocation,
					b.CreatedAt.Format("2006-01-02 15:04:05"),
					b.IsEmpty,
				})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to show (0 for all)")
	return cmd
}

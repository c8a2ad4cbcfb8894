package main

import (
	"github.com/spf13/cobra"
)

func newRestoreAllCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "restore-all",
		Short: "Restore every hidden field across the library",
		Long: `Restores all summaries, titles, and thumbnails previously hidden by this
tool, ignoring policy and exemptions. Use this before uninstalling, or to
start over with different markers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaintenance(cmd, ctx, runOptions{
				dryRun:     dryRun,
				restoreAll: true,
			})
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print the planned restores without applying them")
	return cmd
}

package cmd

import (
	"context"

	"github.com/rlegacy/launcher/internal/progress"
	"github.com/rlegacy/launcher/internal/updater"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored vs published versions and what an update would do",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		l, err := resolveLayout()
		if err != nil {
			return err
		}
		_, err = newReconciler(l, progress.Discard, updater.Options{}).Status(ctx)
		return err
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

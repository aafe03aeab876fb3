package cmd

import (
	"context"
	"errors"

	"github.com/rlegacy/launcher/internal/progress"
	"github.com/rlegacy/launcher/internal/updater"
	"github.com/spf13/cobra"
)

// errUpdateIncomplete is returned after a run in which some bundle could not
// be brought up to date. The details have already been logged.
var errUpdateIncomplete = errors.New("update finished with problems")

var (
	force        bool
	keepArchives bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download the cache and client bundles whose published version changed",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runUpdate(cmd.Context())
		return err
	},
}

// runUpdate performs one reconciliation and converts an incomplete result
// into errUpdateIncomplete.
func runUpdate(ctx context.Context) (*updater.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	l, err := resolveLayout()
	if err != nil {
		return nil, err
	}

	opts := updater.Options{
		KeepArchives: keepArchives,
		Force:        force,
	}
	result, err := withProgress(func(sink progress.Sink) (*updater.Result, error) {
		return newReconciler(l, sink, opts).Run(ctx)
	})
	if err != nil {
		return result, err
	}
	if result.Failed() {
		return result, errUpdateIncomplete
	}
	return result, nil
}

func init() {
	updateCmd.Flags().BoolVar(&force, "force", false, "Ignore the stored versions and download both bundles again")
	updateCmd.Flags().BoolVar(&keepArchives, "keep-archives", false, "Keep downloaded archives in the home directory after extraction")
	rootCmd.AddCommand(updateCmd)
}

package cmd

import (
	"github.com/rlegacy/launcher/internal/logging"
	"github.com/rlegacy/launcher/internal/settings"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or reset the stored bundle versions",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored cache and client versions",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := resolveLayout()
		if err != nil {
			return err
		}
		store := settings.NewStore(l.SettingsPath())
		rec, ok := store.Read()
		if !ok {
			logging.Infof("No stored versions in %s; the next update downloads everything.\n", store.Path())
			return nil
		}
		logging.Infof("Settings: %s\n", store.Path())
		logging.Infof("  cache:  %d\n", rec.Cache)
		logging.Infof("  client: %d\n", rec.Client)
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored versions so the next update resyncs both bundles",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := resolveLayout()
		if err != nil {
			return err
		}
		store := settings.NewStore(l.SettingsPath())
		if err := store.Reset(); err != nil {
			return err
		}
		logging.Infof("Removed %s\n", store.Path())
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}

package cmd

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"github.com/rlegacy/launcher/internal/logging"
	"github.com/rlegacy/launcher/internal/profile"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved option profiles",
}

// Flags for profile create
var (
	profJava         *string
	profKeepArchives *bool
)

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Save the given flags as a named profile",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := profileFromFlags(cmd)
		if err := profile.Save(args[0], p); err != nil {
			return err
		}
		logging.Infof("Profile %q saved to %s\n", args[0], profile.Dir())
		return nil
	},
}

// profileFromFlags records only the flags the user actually passed.
func profileFromFlags(cmd *cobra.Command) *profile.Profile {
	flags := cmd.Flags()
	p := &profile.Profile{}
	str := func(name string, v string) *string {
		if !flags.Changed(name) {
			return nil
		}
		return &v
	}
	boolean := func(name string, v bool) *bool {
		if !flags.Changed(name) {
			return nil
		}
		return &v
	}

	p.HomeDir = str("home-dir", homeDir)
	p.CacheVersionURL = str("cache-version-url", endpoints.CacheVersionURL)
	p.ClientVersionURL = str("client-version-url", endpoints.ClientVersionURL)
	p.CacheDownloadURL = str("cache-download-url", endpoints.CacheDownloadURL)
	p.ClientDownloadURL = str("client-download-url", endpoints.ClientDownloadURL)
	p.Timeout = str("timeout", timeout.String())
	p.LogFile = str("log-file", logFile)
	p.Verbose = boolean("verbose", verbose)
	p.NoColor = boolean("no-color", noColor)
	p.Java = str("java", *profJava)
	p.KeepArchives = boolean("keep-archives", *profKeepArchives)
	return p
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := profile.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			logging.Infoln("No profiles saved.")
			return nil
		}
		for _, n := range names {
			logging.Infoln(n)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile's contents",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile.Load(args[0])
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(p); err != nil {
			return err
		}
		logging.Infof("%s", buf.String())
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved profile",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := profile.Delete(args[0]); err != nil {
			return err
		}
		logging.Infof("Profile %q deleted.\n", args[0])
		return nil
	},
}

func init() {
	// Command-specific options get local flags here; the persistent ones are
	// inherited from the root command.
	profJava = profileCreateCmd.Flags().String("java", "java", "Java executable used to run the client")
	profKeepArchives = profileCreateCmd.Flags().Bool("keep-archives", false, "Keep downloaded archives after extraction")

	profileCmd.AddCommand(profileCreateCmd, profileListCmd, profileShowCmd, profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}

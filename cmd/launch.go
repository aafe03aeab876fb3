package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/rlegacy/launcher/internal/launch"
	"github.com/rlegacy/launcher/internal/logging"
	"github.com/rlegacy/launcher/internal/updater"
	"github.com/spf13/cobra"
)

var (
	javaPath       string
	updateBeforeGo bool
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Start the downloaded client",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if updateBeforeGo {
			if _, err := runUpdate(ctx); err != nil {
				if errors.Is(err, updater.ErrClientInUse) {
					return err
				}
				return fmt.Errorf("not launching: %w", err)
			}
		}

		l, err := resolveLayout()
		if err != nil {
			return err
		}
		launcher := &launch.Launcher{
			Java:       javaPath,
			ClientDir:  l.ClientDir(),
			ClientJar:  l.ClientJar(),
			RuntimeJar: l.RuntimeJar(),
		}

		// The client outlives the launcher, so it is not bound to ctx.
		proc, err := launcher.Launch(context.Background())
		if err != nil {
			if errors.Is(err, launch.ErrNoClientFiles) {
				logging.Errorf("Unable to find client. Run update to download the client files.")
			}
			return err
		}
		logging.Successf("Client started (pid %d).", proc.Pid)
		return proc.Release()
	},
}

func init() {
	launchCmd.Flags().StringVar(&javaPath, "java", launch.DefaultJava, "Java executable used to run the client")
	launchCmd.Flags().BoolVar(&updateBeforeGo, "update", false, "Run an update first and only launch when it succeeds")
	launchCmd.Flags().BoolVar(&keepArchives, "keep-archives", false, "Keep downloaded archives in the home directory after extraction")
	rootCmd.AddCommand(launchCmd)
}

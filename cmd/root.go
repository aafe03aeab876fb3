package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rlegacy/launcher/internal/layout"
	"github.com/rlegacy/launcher/internal/logging"
	"github.com/rlegacy/launcher/internal/profile"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X".
var version = "dev"

var (
	homeDir     string
	profileName string
	verbose     bool
	logFile     string
	timeout     time.Duration
	noColor     bool
	endpoints   = layout.DefaultEndpoints()
)

var rootCmd = &cobra.Command{
	Use:           "rlegacy-launcher",
	Short:         "Keep the RuneLegacy client and cache up to date and start the client",
	Long:          "Check the published cache and client versions, download whatever changed, and launch the client.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Apply profile defaults for flags not explicitly set by the user.
		if profileName != "" {
			p, err := profile.Load(profileName)
			if err != nil {
				return err
			}
			if err := applyProfile(cmd, p); err != nil {
				return err
			}
		}

		logging.SetVerbose(verbose)
		if err := logging.SetOutputFile(logFile); err != nil {
			return fmt.Errorf("opening log file %q: %w", logFile, err)
		}
		setupColor(noColor)
		return nil
	},
}

func applyProfile(cmd *cobra.Command, p *profile.Profile) error {
	flags := cmd.Flags()
	setString := func(name string, dst *string, v *string) {
		if v != nil && !flags.Changed(name) {
			*dst = *v
		}
	}
	setBool := func(name string, dst *bool, v *bool) {
		if v != nil && !flags.Changed(name) {
			*dst = *v
		}
	}

	setString("home-dir", &homeDir, p.HomeDir)
	setString("cache-version-url", &endpoints.CacheVersionURL, p.CacheVersionURL)
	setString("client-version-url", &endpoints.ClientVersionURL, p.ClientVersionURL)
	setString("cache-download-url", &endpoints.CacheDownloadURL, p.CacheDownloadURL)
	setString("client-download-url", &endpoints.ClientDownloadURL, p.ClientDownloadURL)
	setString("log-file", &logFile, p.LogFile)
	setBool("verbose", &verbose, p.Verbose)
	setBool("no-color", &noColor, p.NoColor)

	// Only commands that define these flags pick them up from the profile.
	if flags.Lookup("java") != nil {
		setString("java", &javaPath, p.Java)
	}
	if flags.Lookup("keep-archives") != nil {
		setBool("keep-archives", &keepArchives, p.KeepArchives)
	}

	if p.Timeout != nil && !flags.Changed("timeout") {
		d, err := time.ParseDuration(*p.Timeout)
		if err != nil {
			return fmt.Errorf("profile %q: invalid timeout %q: %w", profileName, *p.Timeout, err)
		}
		timeout = d
	}
	return nil
}

func Execute() {
	err := rootCmd.Execute()
	closeErr := logging.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "Error closing log file: %v\n", closeErr)
		if err == nil {
			os.Exit(1)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if isUsageError(err) {
			if cmd, _, findErr := rootCmd.Find(os.Args[1:]); findErr == nil && cmd != nil {
				_ = cmd.Usage()
			} else {
				_ = rootCmd.Usage()
			}
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return wrapUsageError(err)
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&homeDir, "home-dir", "d", layout.DefaultHome, "Launcher home directory holding the client, cache and settings")
	pf.StringVar(&profileName, "profile", "", "Load a saved option profile by name")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	pf.StringVar(&logFile, "log-file", "", "Write command output to a log file")
	pf.DurationVar(&timeout, "timeout", 5*time.Minute, "HTTP timeout for each version check or download")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&endpoints.CacheVersionURL, "cache-version-url", endpoints.CacheVersionURL, "Endpoint publishing the cache version")
	pf.StringVar(&endpoints.ClientVersionURL, "client-version-url", endpoints.ClientVersionURL, "Endpoint publishing the client version")
	pf.StringVar(&endpoints.CacheDownloadURL, "cache-download-url", endpoints.CacheDownloadURL, "Cache archive download URL")
	pf.StringVar(&endpoints.ClientDownloadURL, "client-download-url", endpoints.ClientDownloadURL, "Client archive download URL")
}

type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

func wrapUsageError(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if validate == nil {
			return nil
		}
		if err := validate(cmd, args); err != nil {
			return wrapUsageError(err)
		}
		return nil
	}
}

func isUsageError(err error) bool {
	var ue *usageError
	if errors.As(err, &ue) {
		return true
	}

	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command ")
}

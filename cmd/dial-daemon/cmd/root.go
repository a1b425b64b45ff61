package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/service/daemon"
	"github.com/oshokin/smart-dial/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string
	// stateFile path where dial state is persisted.
	stateFile string
	// mockInput switches the daemon to reading gestures from stdin.
	mockInput bool

	// rootCmd represents the base command for running the dial daemon.
	rootCmd = &cobra.Command{
		Use:   "dial-daemon",
		Short: "Run the smart dial daemon.",
		Long: `Starts the daemon that owns the rotary dial and turns its gestures
into Sonos and Hue commands.

The daemon grabs the first input device matching the configured pattern,
listens on a unix control socket for injected gestures and status queries,
and optionally serves live status over WebSocket. The active mode and
device choices are persisted to a JSON state file across restarts.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &daemon.Options{
				ConfigPath: configPath,
				StateFile:  stateFile,
				MockInput:  mockInput,
			}

			return daemon.Run(ctx, options)
		},
	}
)

// Execute runs the dial-daemon CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&stateFile, "state-file", "s", "", "path to persist dial state (defaults to the settings value)")
	rootCmd.Flags().BoolVar(&mockInput, "mock", false, "read gestures from stdin instead of an input device")
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/service/update"
	"github.com/oshokin/smart-dial/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string

	// rootCmd represents the base command for downloading and applying updates.
	rootCmd = &cobra.Command{
		Use:   "dial-updater",
		Short: "Download and apply the latest smart-dial release.",
		Long: `Compares the installed binaries against the release manifest at the
configured update URL, swaps anything stale and restarts the daemon.

Schedule it from cron or a systemd timer. Concurrent runs are guarded by
a marker file, a second updater backs off instead of racing the first.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &update.Options{
				ConfigPath: configPath,
			}

			return update.Run(ctx, options)
		},
	}
)

// Execute runs the dial-updater CLI and exits with non-zero status on error.
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
}

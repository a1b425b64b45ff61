package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/service/packager"
	"github.com/oshokin/smart-dial/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string

	// rootCmd represents the base command for preparing a release.
	rootCmd = &cobra.Command{
		Use:   "dial-packager [update-url]",
		Short: "Checksum built binaries and write the release manifest.",
		Long: `Run from the directory holding freshly built smart-dial binaries.

The packager checksums every release artifact, writes the version
manifest the updater consumes and prints which files to upload to the
given update URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				ConfigPath: configPath,
				UpdateURL:  args[0],
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the dial-packager CLI and exits with non-zero status on error.
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

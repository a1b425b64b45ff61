package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/service/pair"
	"github.com/oshokin/smart-dial/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string
	// stateFile path where the earned credentials are persisted.
	stateFile string
	// deviceType is the application identifier registered on the bridge.
	deviceType string

	// rootCmd represents the base command for pairing with a Hue bridge.
	rootCmd = &cobra.Command{
		Use:   "dial-pair [bridge-address]",
		Short: "Pair with a Philips Hue bridge and store the credentials.",
		Long: `Discovers a Hue bridge on the local network, waits for its link
button to be pressed and stores the earned username in the state file the
daemon reads at startup.

The bridge address argument skips discovery, which helps on networks
where multicast is filtered.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use the bridge address argument if provided, otherwise discover.
			var bridgeAddress string
			if len(args) > 0 {
				bridgeAddress = args[0]
			}

			options := &pair.Options{
				ConfigPath:    configPath,
				BridgeAddress: bridgeAddress,
				StateFile:     stateFile,
				DeviceType:    deviceType,
			}

			return pair.Run(ctx, options)
		},
	}
)

// Execute runs the dial-pair CLI and exits with non-zero status on error.
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
		StringVarP(&stateFile, "state-file", "s", "", "path to persist credentials (defaults to the settings value)")
	rootCmd.Flags().StringVar(&deviceType, "device-type", "", "application identifier registered on the bridge")
}

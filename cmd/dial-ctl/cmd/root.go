package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/service/ctl"
	"github.com/oshokin/smart-dial/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string
	// socketPath overrides the daemon control socket from the settings.
	socketPath string
	// count repeats the injected gesture.
	count int

	// rootCmd represents the base command for talking to a running daemon.
	rootCmd = &cobra.Command{
		Use:   "dial-ctl",
		Short: "Inspect and drive a running dial daemon.",
		Long: `Talks to the dial daemon over its unix control socket.

Injected gestures travel the same interpretation pipeline as hardware
input, so rotate and press behave exactly as if the physical dial had
been touched.`,
	}

	// statusCmd prints the daemon's current view of the world.
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the daemon's current mode, devices and last activity.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(ctl.ActionStatus, "")
		},
	}

	// rotateCmd injects rotation steps.
	rotateCmd = &cobra.Command{
		Use:       "rotate [cw|ccw]",
		Short:     "Inject rotation steps as if the dial were turned.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"cw", "ccw"},
		RunE: func(_ *cobra.Command, args []string) error {
			var direction string
			if len(args) > 0 {
				direction = args[0]
			}

			return run(ctl.ActionRotate, direction)
		},
	}

	// pressCmd injects button presses.
	pressCmd = &cobra.Command{
		Use:   "press",
		Short: "Inject button presses as if the dial were clicked.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(ctl.ActionPress, "")
		},
	}
)

// run performs one control call with graceful shutdown handling.
func run(action ctl.Action, direction string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	options := &ctl.Options{
		ConfigPath: configPath,
		SocketPath: socketPath,
		Action:     action,
		Direction:  direction,
		Count:      count,
	}

	return ctl.Run(ctx, options)
}

// Execute runs the dial-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&socketPath, "socket", "s", "", "path to the daemon control socket (defaults to the settings value)")
	rootCmd.PersistentFlags().IntVarP(&count, "count", "n", 1, "how many times to repeat the gesture")

	rootCmd.AddCommand(statusCmd, rotateCmd, pressCmd)
}

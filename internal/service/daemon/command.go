package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/smart-dial/internal/actuator"
	"github.com/oshokin/smart-dial/internal/actuator/sonos"
	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/input"
	"github.com/oshokin/smart-dial/internal/logger"
	repo "github.com/oshokin/smart-dial/internal/repository/state"
	"github.com/oshokin/smart-dial/internal/service/common"
)

// Options controls the daemon process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// StateFile overrides the state file path from the settings.
	StateFile string
	// MockInput reads gestures from stdin instead of an input device.
	MockInput bool

	// The remaining fields are wiring seams. Production wiring fills them
	// from the settings; tests inject fakes.
	Source     input.Source
	Audio      actuator.Audio
	Groups     actuator.GroupFinder
	Lighting   actuator.Lighting
	Repository repo.Repository
}

// ErrAlreadyRunning indicates another daemon owns the input device.
var ErrAlreadyRunning = errors.New("another dial-daemon is already running")

// Run starts the daemon and blocks until the context is canceled or the
// input source fails.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "dial-daemon")

	running, err := common.AnotherInstanceRunning()
	if err != nil {
		logger.Warnf(ctx, "Failed to scan for running daemons: %v", err)
	} else if running {
		return ErrAlreadyRunning
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	stateFile := cfg.StateFile
	if opts.StateFile != "" {
		stateFile = opts.StateFile
	}

	if opts.Repository == nil {
		opts.Repository = repo.NewFileRepository(stateFile)
	}

	if opts.Source == nil {
		if opts.MockInput || cfg.Input.Mock {
			opts.Source = input.NewMockSource(os.Stdin)
		} else {
			opts.Source = input.NewEvdevSource(cfg.Input.DevicePattern)
		}
	}

	if opts.Audio == nil || opts.Groups == nil {
		client := sonos.NewClient(cfg.Sonos.DiscoveryTimeout())

		if opts.Audio == nil {
			opts.Audio = client
		}

		if opts.Groups == nil {
			opts.Groups = client
		}
	}

	svc, err := newService(ctx, cfg, opts)
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}

	logger.InfoKV(ctx, "Dial daemon starting",
		"mode", svc.state.Mode,
		"state_file", stateFile,
		"control_socket", cfg.IPC.SocketPath)

	return svc.run(ctx)
}

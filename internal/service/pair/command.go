package pair

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/smart-dial/internal/actuator/hue"
	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/domain/dial"
	"github.com/oshokin/smart-dial/internal/logger"
	repo "github.com/oshokin/smart-dial/internal/repository/state"
	"github.com/oshokin/smart-dial/internal/service/common"
)

// defaultDeviceType is the application name registered on the bridge.
const defaultDeviceType = "smart-dial"

// Options controls the pairing flow.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// BridgeAddress skips discovery and pairs with the given host.
	BridgeAddress string
	// StateFile overrides the state file path from the settings.
	StateFile string
	// DeviceType overrides the application identifier registered on the
	// bridge.
	DeviceType string
	// Output receives progress messages, stdout when nil.
	Output io.Writer
}

// Run pairs with a Hue bridge and persists the credentials. It blocks
// until the link button is pressed or the pairing timeout expires.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "dial-pair")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	stateFile := cfg.StateFile
	if opts.StateFile != "" {
		stateFile = opts.StateFile
	}

	bridgeAddress := cfg.Hue.BridgeAddress
	if opts.BridgeAddress != "" {
		bridgeAddress = opts.BridgeAddress
	}

	deviceType := opts.DeviceType
	if deviceType == "" {
		deviceType = common.DetectDeviceType(defaultDeviceType)
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	bridge, err := hue.Discover(ctx, bridgeAddress)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Found hue bridge", "host", bridge.Host)
	fmt.Fprintf(out, "found bridge at %s\n", bridge.Host)
	fmt.Fprintln(out, "press the link button on the bridge...")

	pairCtx, cancel := context.WithTimeout(ctx, cfg.Hue.PairingTimeout())
	defer cancel()

	username, err := hue.Pair(pairCtx, bridge, deviceType)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "paired successfully")

	// Zone listing is a courtesy, credentials are already earned.
	zones, err := hue.Zones(ctx, bridge.Login(username))
	if err != nil {
		logger.Warnf(ctx, "Failed to list zones: %v", err)
	}

	state, err := loadOrFresh(ctx, stateFile)
	if err != nil {
		return err
	}

	state.HueCredentials = &dial.HueCredentials{
		Host:     bridge.Host,
		Username: username,
	}
	state.EnsureDefaults(zones)

	if err = repo.NewFileRepository(stateFile).Save(ctx, state); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	if len(zones) > 0 {
		fmt.Fprintln(out, "zones available for cycling:")

		for _, zone := range zones {
			fmt.Fprintf(out, "  - %s\n", zone)
		}
	}

	logger.InfoKV(ctx, "Pairing complete", "state_file", stateFile, "zones", len(zones))

	return nil
}

// loadOrFresh reads the daemon state so pairing never clobbers an existing
// mode or speaker memory.
func loadOrFresh(ctx context.Context, stateFile string) (*dial.State, error) {
	state, err := repo.NewFileRepository(stateFile).Load(ctx)

	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, repo.ErrNotFound):
		return &dial.State{Mode: dial.ModeSonos}, nil
	default:
		return nil, fmt.Errorf("load state: %w", err)
	}
}

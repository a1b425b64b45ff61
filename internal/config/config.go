package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the smart-dial binaries.
type Config struct {
	// LogLevel is the minimum level for log output (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// StateFile is the path to the JSON file storing runtime state
	// (mode, selected zone, last speaker, Hue credentials).
	StateFile string `yaml:"state_file"`
	// UpdateURL is the base URL where release manifests and artifacts
	// are hosted for dial-updater. Optional.
	UpdateURL string `yaml:"update_url"`
	// Input configures where raw dial events come from.
	Input Input `yaml:"input"`
	// Clicks configures the multi-click classifier.
	Clicks Clicks `yaml:"clicks"`
	// Sonos configures the audio actuator and the active-group poller.
	Sonos Sonos `yaml:"sonos"`
	// Hue configures the lighting actuator and zone cycling.
	Hue Hue `yaml:"hue"`
	// Dispatch configures outbound call throttling and retries.
	Dispatch Dispatch `yaml:"dispatch"`
	// IPC configures the local control socket.
	IPC IPC `yaml:"ipc"`
	// WS configures the optional WebSocket status feed.
	WS WS `yaml:"ws"`
}

// Input selects and configures the event source.
type Input struct {
	// DevicePattern is the case-insensitive substring matched against
	// input device names to find the dial.
	DevicePattern string `yaml:"device_pattern"`
	// Mock switches the daemon to reading events from stdin
	// (+ rotate up, - rotate down, p press) instead of a real device.
	Mock bool `yaml:"mock"`
}

// Clicks configures the multi-click classifier.
type Clicks struct {
	// DebounceMS is the silence, in milliseconds, that ends a click burst.
	DebounceMS int `yaml:"debounce_ms"`
	// MaxClicks is the click count that resolves a burst immediately
	// and toggles the control mode.
	MaxClicks int `yaml:"max_clicks"`
}

// Debounce returns the click debounce window as a duration.
func (c Clicks) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Sonos configures the audio actuator.
type Sonos struct {
	// VolumeStep is the group volume change applied per rotation step.
	VolumeStep int `yaml:"volume_step"`
	// PollIntervalMS is how often, in milliseconds, the daemon re-resolves
	// the currently playing group.
	PollIntervalMS int `yaml:"poll_interval_ms"`
	// DiscoveryTimeoutMS bounds a single SSDP speaker discovery round.
	DiscoveryTimeoutMS int `yaml:"discovery_timeout_ms"`
}

// PollInterval returns the active-group poll interval as a duration.
func (s Sonos) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

// DiscoveryTimeout returns the SSDP discovery timeout as a duration.
func (s Sonos) DiscoveryTimeout() time.Duration {
	return time.Duration(s.DiscoveryTimeoutMS) * time.Millisecond
}

// Hue configures the lighting actuator.
type Hue struct {
	// BridgeAddress is the bridge IP or host. Empty means discover.
	BridgeAddress string `yaml:"bridge_address"`
	// BrightnessStep is the brightness change applied per rotation step.
	BrightnessStep int `yaml:"brightness_step"`
	// PairingTimeoutMS bounds how long dial-pair waits for the link button.
	PairingTimeoutMS int `yaml:"pairing_timeout_ms"`
	// Zones is the ordered list of zone names the double-click cycles through.
	Zones []string `yaml:"zones"`
}

// PairingTimeout returns the pairing timeout as a duration.
func (h Hue) PairingTimeout() time.Duration {
	return time.Duration(h.PairingTimeoutMS) * time.Millisecond
}

// Dispatch configures outbound call behavior.
type Dispatch struct {
	// ThrottleMS is the per-target cooldown, in milliseconds, between
	// coalescible outbound calls.
	ThrottleMS int `yaml:"throttle_ms"`
	// CallTimeoutMS bounds a single actuator call.
	CallTimeoutMS int `yaml:"call_timeout_ms"`
	// RetryBackoffMS is the pause before the single retry of a failed
	// discrete command.
	RetryBackoffMS int `yaml:"retry_backoff_ms"`
}

// Throttle returns the per-target cooldown as a duration.
func (d Dispatch) Throttle() time.Duration {
	return time.Duration(d.ThrottleMS) * time.Millisecond
}

// CallTimeout returns the actuator call timeout as a duration.
func (d Dispatch) CallTimeout() time.Duration {
	return time.Duration(d.CallTimeoutMS) * time.Millisecond
}

// RetryBackoff returns the discrete-command retry pause as a duration.
func (d Dispatch) RetryBackoff() time.Duration {
	return time.Duration(d.RetryBackoffMS) * time.Millisecond
}

// IPC configures the local control socket.
type IPC struct {
	// SocketPath is the unix socket the daemon listens on for dial-ctl.
	SocketPath string `yaml:"socket_path"`
}

// WS configures the WebSocket status feed.
type WS struct {
	// Enabled turns the status feed on.
	Enabled bool `yaml:"enabled"`
	// ListenAddress is the host:port the feed listens on.
	ListenAddress string `yaml:"listen_address"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "smart-dial-settings.yaml"

	// DefaultStateFilename is the default filename for runtime state JSON.
	DefaultStateFilename = "smart-dial-state.json"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultDevicePattern matches the dial receiver, which presents
	// itself as a keyboard.
	DefaultDevicePattern = "Keyboard"

	// DefaultDebounceMS is the default click debounce window.
	DefaultDebounceMS = 300

	// DefaultMaxClicks is the default mode-toggle click count.
	DefaultMaxClicks = 4

	// MinMaxClicks is the smallest permitted mode-toggle click count.
	// Below it every single click would toggle the mode.
	MinMaxClicks = 2

	// DefaultVolumeStep is the default group volume change per rotation step.
	DefaultVolumeStep = 3

	// DefaultPollIntervalMS is the default active-group poll interval.
	DefaultPollIntervalMS = 5000

	// DefaultDiscoveryTimeoutMS is the default SSDP discovery timeout.
	DefaultDiscoveryTimeoutMS = 2000

	// DefaultBrightnessStep is the default brightness change per rotation step.
	DefaultBrightnessStep = 25

	// DefaultPairingTimeoutMS is the default link-button wait.
	DefaultPairingTimeoutMS = 30000

	// DefaultThrottleMS is the default per-target outbound cooldown.
	DefaultThrottleMS = 150

	// DefaultCallTimeoutMS is the default actuator call timeout.
	DefaultCallTimeoutMS = 5000

	// DefaultRetryBackoffMS is the default discrete-command retry pause.
	DefaultRetryBackoffMS = 200

	// DefaultSocketPath is the default IPC socket location.
	DefaultSocketPath = "/tmp/smart-dial.sock"

	// DefaultWSListenAddress is the default status feed address.
	DefaultWSListenAddress = "127.0.0.1:8137"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errMaxClicksTooSmall is returned when max_clicks leaves no room
	// for regular click commands.
	errMaxClicksTooSmall = fmt.Errorf("max_clicks must be at least %d", MinMaxClicks)
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults for
// everything left unset.
func Validate(cfg *Config) error {
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}

	if cfg.Input.DevicePattern == "" {
		cfg.Input.DevicePattern = DefaultDevicePattern
	}

	if cfg.Clicks.DebounceMS <= 0 {
		cfg.Clicks.DebounceMS = DefaultDebounceMS
	}

	if cfg.Clicks.MaxClicks == 0 {
		cfg.Clicks.MaxClicks = DefaultMaxClicks
	}

	if cfg.Clicks.MaxClicks < MinMaxClicks {
		return errMaxClicksTooSmall
	}

	if cfg.Sonos.VolumeStep <= 0 {
		cfg.Sonos.VolumeStep = DefaultVolumeStep
	}

	if cfg.Sonos.PollIntervalMS <= 0 {
		cfg.Sonos.PollIntervalMS = DefaultPollIntervalMS
	}

	if cfg.Sonos.DiscoveryTimeoutMS <= 0 {
		cfg.Sonos.DiscoveryTimeoutMS = DefaultDiscoveryTimeoutMS
	}

	if cfg.Hue.BrightnessStep <= 0 {
		cfg.Hue.BrightnessStep = DefaultBrightnessStep
	}

	if cfg.Hue.PairingTimeoutMS <= 0 {
		cfg.Hue.PairingTimeoutMS = DefaultPairingTimeoutMS
	}

	if cfg.Dispatch.ThrottleMS <= 0 {
		cfg.Dispatch.ThrottleMS = DefaultThrottleMS
	}

	if cfg.Dispatch.CallTimeoutMS <= 0 {
		cfg.Dispatch.CallTimeoutMS = DefaultCallTimeoutMS
	}

	if cfg.Dispatch.RetryBackoffMS <= 0 {
		cfg.Dispatch.RetryBackoffMS = DefaultRetryBackoffMS
	}

	if cfg.IPC.SocketPath == "" {
		cfg.IPC.SocketPath = DefaultSocketPath
	}

	if cfg.WS.Enabled {
		if cfg.WS.ListenAddress == "" {
			cfg.WS.ListenAddress = DefaultWSListenAddress
		}

		if _, err := net.ResolveTCPAddr("tcp", cfg.WS.ListenAddress); err != nil {
			return fmt.Errorf("invalid status feed address: %w", err)
		}
	}

	if cfg.UpdateURL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.UpdateURL); err != nil {
		return fmt.Errorf("invalid update URL: %w", err)
	}

	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and format validations for settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Empty settings are fully defaulted.
	cfg := new(Config)

	err := Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)
	require.Equal(t, DefaultStateFilename, cfg.StateFile)
	require.Equal(t, DefaultDevicePattern, cfg.Input.DevicePattern)
	require.Equal(t, DefaultDebounceMS, cfg.Clicks.DebounceMS)
	require.Equal(t, DefaultMaxClicks, cfg.Clicks.MaxClicks)
	require.Equal(t, DefaultVolumeStep, cfg.Sonos.VolumeStep)
	require.Equal(t, DefaultBrightnessStep, cfg.Hue.BrightnessStep)
	require.Equal(t, DefaultThrottleMS, cfg.Dispatch.ThrottleMS)
	require.Equal(t, DefaultSocketPath, cfg.IPC.SocketPath)

	// A single click cannot double as the mode toggle.
	cfg = &Config{Clicks: Clicks{MaxClicks: 1}}

	err = Validate(cfg)
	require.Error(t, err)

	// Bad status feed address.
	cfg = &Config{WS: WS{Enabled: true, ListenAddress: "bad:address"}}

	err = Validate(cfg)
	require.Error(t, err)

	// Enabled feed without an address gets the default.
	cfg = &Config{WS: WS{Enabled: true}}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultWSListenAddress, cfg.WS.ListenAddress)

	// Bad update URL.
	cfg = &Config{UpdateURL: "not a url"}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay with update URL.
	cfg = &Config{UpdateURL: "https://example.com/releases"}

	err = Validate(cfg)
	require.NoError(t, err)
}

// TestDurations checks the millisecond-to-duration accessors.
func TestDurations(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))

	require.Equal(t, 300*time.Millisecond, cfg.Clicks.Debounce())
	require.Equal(t, 5*time.Second, cfg.Sonos.PollInterval())
	require.Equal(t, 2*time.Second, cfg.Sonos.DiscoveryTimeout())
	require.Equal(t, 30*time.Second, cfg.Hue.PairingTimeout())
	require.Equal(t, 150*time.Millisecond, cfg.Dispatch.Throttle())
	require.Equal(t, 5*time.Second, cfg.Dispatch.CallTimeout())
	require.Equal(t, 200*time.Millisecond, cfg.Dispatch.RetryBackoff())
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		LogLevel:  "debug",
		StateFile: filepath.Join(dir, "state.json"),
		UpdateURL: "https://updates.local/smart-dial",
		Input:     Input{DevicePattern: "Dial", Mock: true},
		Clicks:    Clicks{DebounceMS: 250, MaxClicks: 5},
		Hue:       Hue{BridgeAddress: "192.168.1.59", Zones: []string{"Living Room", "Office"}},
		WS:        WS{Enabled: true, ListenAddress: "127.0.0.1:0"},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Input.DevicePattern, loaded.Input.DevicePattern)
	require.True(t, loaded.Input.Mock)
	require.Equal(t, 250, loaded.Clicks.DebounceMS)
	require.Equal(t, 5, loaded.Clicks.MaxClicks)
	require.Equal(t, []string{"Living Room", "Office"}, loaded.Hue.Zones)
	require.Equal(t, cfg.UpdateURL, loaded.UpdateURL)

	// Defaults filled in for sections the file omitted.
	require.Equal(t, DefaultVolumeStep, loaded.Sonos.VolumeStep)
	require.Equal(t, DefaultSocketPath, loaded.IPC.SocketPath)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestSaveNilConfig ensures a nil configuration is rejected.
func TestSaveNilConfig(t *testing.T) {
	t.Parallel()

	err := Save(filepath.Join(t.TempDir(), "settings.yaml"), nil)
	require.Error(t, err)
}

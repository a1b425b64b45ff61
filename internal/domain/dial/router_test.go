package dial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRoute checks the full routing table for both modes.
func TestRoute(t *testing.T) {
	t.Parallel()

	routing := Routing{VolumeStep: 3, BrightnessStep: 25}
	now := time.Now()

	tests := []struct {
		name  string
		mode  Mode
		event InputEvent
		want  Intent
		ok    bool
	}{
		{"sonos rotate cw", ModeSonos, Rotate{Direction: Clockwise, At: now}, VolumeDelta{Step: 3}, true},
		{"sonos rotate ccw", ModeSonos, Rotate{Direction: CounterClockwise, At: now}, VolumeDelta{Step: -3}, true},
		{"sonos single click", ModeSonos, ResolvedClick{Count: 1, At: now}, PlayPause{}, true},
		{"sonos double click", ModeSonos, ResolvedClick{Count: 2, At: now}, TrackSkip{Direction: 1}, true},
		{"sonos triple click", ModeSonos, ResolvedClick{Count: 3, At: now}, TrackSkip{Direction: -1}, true},
		{"hue rotate cw", ModeHue, Rotate{Direction: Clockwise, At: now}, BrightnessDelta{Step: 25}, true},
		{"hue rotate ccw", ModeHue, Rotate{Direction: CounterClockwise, At: now}, BrightnessDelta{Step: -25}, true},
		{"hue single click", ModeHue, ResolvedClick{Count: 1, At: now}, PowerToggle{}, true},
		{"hue double click", ModeHue, ResolvedClick{Count: 2, At: now}, ZoneCycle{}, true},
		{"hue triple click unmapped", ModeHue, ResolvedClick{Count: 3, At: now}, nil, false},
		{"raw edge unmapped", ModeSonos, ButtonEdge{State: ButtonDown, At: now}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Route(tt.mode, tt.event, routing)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

// TestNextZone checks cycle order, wrap-around and recovery from
// selections missing from the configured list.
func TestNextZone(t *testing.T) {
	t.Parallel()

	zones := []string{"Living Room", "Office", "Bedroom"}

	next, ok := NextZone(zones, "Living Room")
	require.True(t, ok)
	require.Equal(t, "Office", next)

	// Wrap around.
	next, ok = NextZone(zones, "Bedroom")
	require.True(t, ok)
	require.Equal(t, "Living Room", next)

	// Names match case-insensitively.
	next, ok = NextZone(zones, "office")
	require.True(t, ok)
	require.Equal(t, "Bedroom", next)

	// Unknown selection recovers to the first zone.
	next, ok = NextZone(zones, "Garage")
	require.True(t, ok)
	require.Equal(t, "Living Room", next)

	// No zones configured.
	_, ok = NextZone(nil, "Living Room")
	require.False(t, ok)
}

// TestCoalesce verifies deltas of the same kind sum and everything else
// keeps the newest intent.
func TestCoalesce(t *testing.T) {
	t.Parallel()

	merged, ok := Coalesce(VolumeDelta{Step: 3}, VolumeDelta{Step: -6})
	require.True(t, ok)
	require.Equal(t, VolumeDelta{Step: -3}, merged)

	merged, ok = Coalesce(BrightnessDelta{Step: 25}, BrightnessDelta{Step: 25})
	require.True(t, ok)
	require.Equal(t, BrightnessDelta{Step: 50}, merged)

	// Kind mismatch keeps the newest intent.
	merged, ok = Coalesce(VolumeDelta{Step: 3}, BrightnessDelta{Step: 25})
	require.False(t, ok)
	require.Equal(t, BrightnessDelta{Step: 25}, merged)
}

// TestTargetKey verifies targets of different kinds never share a key.
func TestTargetKey(t *testing.T) {
	t.Parallel()

	sonos := Target{Kind: TargetSonos, Name: "Kitchen"}
	hue := Target{Kind: TargetHue, Name: "Kitchen"}

	require.NotEqual(t, sonos.Key(), hue.Key())
	require.Equal(t, "sonos:Kitchen", sonos.Key())
}

// TestModeToggled verifies the mode flip is an involution.
func TestModeToggled(t *testing.T) {
	t.Parallel()

	require.Equal(t, ModeHue, ModeSonos.Toggled())
	require.Equal(t, ModeSonos, ModeHue.Toggled())
	require.Equal(t, ModeSonos, ModeSonos.Toggled().Toggled())
}

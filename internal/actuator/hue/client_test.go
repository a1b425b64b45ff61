package hue

import (
	"testing"

	"github.com/amimof/huego"
	"github.com/stretchr/testify/require"
)

// TestPlanBrightness checks the dimmer decisions across power states and
// range edges.
func TestPlanBrightness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current uint8
		on      bool
		delta   int
		want    brightnessAction
	}{
		{"raise lit zone", 100, true, 25, brightnessAction{Level: 125}},
		{"lower lit zone", 100, true, -25, brightnessAction{Level: 75}},
		{"raise from off turns on", 100, false, 25, brightnessAction{TurnOn: true, Level: 125}},
		{"raise clamps at ceiling", 250, true, 25, brightnessAction{Level: 254}},
		{"lower to floor turns off", 20, true, -25, brightnessAction{TurnOff: true}},
		{"lower from floor stays off intent", 1, true, -25, brightnessAction{TurnOff: true}},
		{"lower dark zone while off", 0, false, -25, brightnessAction{TurnOff: true}},
		{"zero delta sets clamped level", 0, true, 0, brightnessAction{Level: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := planBrightness(tt.current, tt.on, tt.delta)
			require.Equal(t, tt.want, got)
		})
	}
}

// TestFindGroup verifies zone names match case-insensitively.
func TestFindGroup(t *testing.T) {
	t.Parallel()

	groups := []huego.Group{
		{Name: "Living Room"},
		{Name: "Office"},
	}

	group, ok := findGroup(groups, "office")
	require.True(t, ok)
	require.Equal(t, "Office", group.Name)

	_, ok = findGroup(groups, "Garage")
	require.False(t, ok)

	_, ok = findGroup(nil, "Office")
	require.False(t, ok)
}

// TestGroupStateHelpers verifies nil bridge documents read as dark and off.
func TestGroupStateHelpers(t *testing.T) {
	t.Parallel()

	require.Zero(t, currentBrightness(&huego.Group{}))
	require.False(t, anyOn(&huego.Group{}))

	group := &huego.Group{
		State:      &huego.State{On: true, Bri: 200},
		GroupState: &huego.GroupState{AnyOn: true},
	}

	require.Equal(t, uint8(200), currentBrightness(group))
	require.True(t, anyOn(group))
}

// TestIsLinkButtonError distinguishes the pairing handshake from real failures.
func TestIsLinkButtonError(t *testing.T) {
	t.Parallel()

	require.True(t, isLinkButtonError(&huego.APIError{Type: linkButtonErrorType}))
	require.False(t, isLinkButtonError(&huego.APIError{Type: 1}))
	require.False(t, isLinkButtonError(nil))
}

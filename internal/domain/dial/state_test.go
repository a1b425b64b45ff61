package dial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStateClone verifies Clone copies fields and deep-copies credentials.
func TestStateClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*HueCredentials)(nil).Clone())

	s := State{
		Mode:        ModeHue,
		HueZone:     "Office",
		LastSpeaker: "Kitchen",
		HueCredentials: &HueCredentials{
			Host:     "192.168.1.59",
			Username: "dial-user",
		},
	}

	c := s.Clone()
	require.Equal(t, s.Mode, c.Mode)
	require.Equal(t, s.HueZone, c.HueZone)
	require.Equal(t, s.LastSpeaker, c.LastSpeaker)
	require.Equal(t, s.HueCredentials, c.HueCredentials)

	// Ensure the credentials pointer is cloned.
	require.NotSame(t, s.HueCredentials, c.HueCredentials)
}

// TestEnsureDefaults verifies unset fields fall back to sonos mode and the
// first configured zone, without touching set fields.
func TestEnsureDefaults(t *testing.T) {
	t.Parallel()

	s := new(State)
	s.EnsureDefaults([]string{"Living Room", "Office"})
	require.Equal(t, ModeSonos, s.Mode)
	require.Equal(t, "Living Room", s.HueZone)

	// A corrupt mode value is replaced.
	s = &State{Mode: Mode("disco"), HueZone: "Office"}
	s.EnsureDefaults([]string{"Living Room", "Office"})
	require.Equal(t, ModeSonos, s.Mode)
	require.Equal(t, "Office", s.HueZone)

	// Set fields stay.
	s = &State{Mode: ModeHue, HueZone: "Bedroom"}
	s.EnsureDefaults([]string{"Living Room"})
	require.Equal(t, ModeHue, s.Mode)
	require.Equal(t, "Bedroom", s.HueZone)

	// No zones configured leaves the zone empty.
	s = new(State)
	s.EnsureDefaults(nil)
	require.Empty(t, s.HueZone)
}

package dial

// Mode selects which actuator the dial currently controls.
type Mode string

const (
	// ModeSonos routes dial input to the audio system.
	ModeSonos Mode = "sonos"
	// ModeHue routes dial input to the lighting system.
	ModeHue Mode = "hue"
)

// Toggled returns the other mode.
func (m Mode) Toggled() Mode {
	if m == ModeSonos {
		return ModeHue
	}

	return ModeSonos
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeSonos || m == ModeHue
}

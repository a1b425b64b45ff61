package dial

import "time"

// HueCredentials holds the bridge access obtained by pairing.
type HueCredentials struct {
	// Host is the bridge IP or hostname.
	Host string `json:"host"`
	// Username is the API key the bridge issued.
	Username string `json:"username"`
}

// Clone returns a deep copy of the credentials.
func (c *HueCredentials) Clone() *HueCredentials {
	if c == nil {
		return nil
	}

	cloned := *c

	return &cloned
}

// State is the persisted runtime state of the daemon. Memory stays
// authoritative: persistence failures never roll back these fields.
type State struct {
	// Mode is the actuator the dial currently controls.
	Mode Mode `json:"mode"`
	// HueZone is the lighting zone rotation and power commands apply to.
	HueZone string `json:"hue_zone,omitempty"`
	// LastSpeaker is the most recently playing group, kept as the
	// fallback target while nothing is playing.
	LastSpeaker string `json:"last_speaker,omitempty"`
	// HueCredentials is the paired bridge access, written by dial-pair.
	HueCredentials *HueCredentials `json:"hue_credentials,omitempty"`
}

// Clone returns a copy of the state to avoid leaking internal references.
func (s *State) Clone() *State {
	return &State{
		Mode:           s.Mode,
		HueZone:        s.HueZone,
		LastSpeaker:    s.LastSpeaker,
		HueCredentials: s.HueCredentials.Clone(),
	}
}

// EnsureDefaults fills unset fields: sonos mode and the first configured zone.
func (s *State) EnsureDefaults(zones []string) {
	if !s.Mode.Valid() {
		s.Mode = ModeSonos
	}

	if s.HueZone == "" && len(zones) > 0 {
		s.HueZone = zones[0]
	}
}

// Status is the observable snapshot served over IPC and the status feed.
type Status struct {
	// Mode is the actuator the dial currently controls.
	Mode Mode `json:"mode"`
	// HueZone is the currently selected lighting zone.
	HueZone string `json:"hue_zone,omitempty"`
	// SonosGroup is the current audio target, usually the playing group.
	SonosGroup string `json:"sonos_group,omitempty"`
	// Paired reports whether Hue bridge credentials are present.
	Paired bool `json:"paired"`
	// LastIntent names the most recently dispatched command.
	LastIntent string `json:"last_intent,omitempty"`
	// LastError describes the most recent actuator failure, if any.
	LastError string `json:"last_error,omitempty"`
	// UpdatedAt is when this snapshot was taken.
	UpdatedAt time.Time `json:"updated_at"`
}

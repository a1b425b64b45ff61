package dial

import "strings"

// Routing carries the per-mode step sizes applied to rotation.
type Routing struct {
	VolumeStep     int
	BrightnessStep int
}

// Route maps an interpreted input event to an actuator intent for the
// given mode. Events with no mapping produce no intent; the mode-toggle
// click count is handled before routing and never reaches this table.
func Route(mode Mode, event InputEvent, r Routing) (Intent, bool) {
	switch e := event.(type) {
	case Rotate:
		if mode == ModeHue {
			return BrightnessDelta{Step: e.Direction.Sign() * r.BrightnessStep}, true
		}

		return VolumeDelta{Step: e.Direction.Sign() * r.VolumeStep}, true
	case ResolvedClick:
		return routeClick(mode, e.Count)
	}

	return nil, false
}

func routeClick(mode Mode, count int) (Intent, bool) {
	switch mode {
	case ModeSonos:
		switch count {
		case 1:
			return PlayPause{}, true
		case 2:
			return TrackSkip{Direction: 1}, true
		case 3:
			return TrackSkip{Direction: -1}, true
		}
	case ModeHue:
		switch count {
		case 1:
			return PowerToggle{}, true
		case 2:
			return ZoneCycle{}, true
		}
	}

	return nil, false
}

// NextZone returns the zone after current in the configured cycle, matching
// names case-insensitively. An unknown current selects the first zone, so a
// renamed or hand-edited selection recovers instead of wedging the cycle.
func NextZone(zones []string, current string) (string, bool) {
	if len(zones) == 0 {
		return "", false
	}

	for i, zone := range zones {
		if strings.EqualFold(zone, current) {
			return zones[(i+1)%len(zones)], true
		}
	}

	return zones[0], true
}

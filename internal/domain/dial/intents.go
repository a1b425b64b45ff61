package dial

import "fmt"

// TargetKind is the actuator family a target belongs to.
type TargetKind string

const (
	// TargetSonos targets a speaker group.
	TargetSonos TargetKind = "sonos"
	// TargetHue targets a lighting zone.
	TargetHue TargetKind = "hue"
)

// Target identifies one outbound destination. Dispatch serializes and
// throttles calls per distinct target.
type Target struct {
	Kind TargetKind
	Name string
}

// Key returns the identity used for per-target serialization.
func (t Target) Key() string {
	return string(t.Kind) + ":" + t.Name
}

// Intent is a device-facing command produced by routing an input event.
type Intent interface {
	intent()

	// Coalescible reports whether consecutive intents of this kind may be
	// merged while a throttle window is open. Merged intents sum their steps.
	Coalescible() bool

	// String names the intent for logs and status reporting.
	String() string
}

// VolumeDelta changes group volume by Step (positive raises).
type VolumeDelta struct {
	Step int
}

func (VolumeDelta) intent() {}

// Coalescible reports that volume changes merge during throttling.
func (VolumeDelta) Coalescible() bool { return true }

func (i VolumeDelta) String() string { return fmt.Sprintf("volume%+d", i.Step) }

// PlayPause toggles playback on the target group.
type PlayPause struct{}

func (PlayPause) intent() {}

// Coalescible reports that play-pause is a discrete command.
func (PlayPause) Coalescible() bool { return false }

func (PlayPause) String() string { return "play-pause" }

// TrackSkip moves to the next (+1) or previous (-1) track.
type TrackSkip struct {
	Direction int
}

func (TrackSkip) intent() {}

// Coalescible reports that track skips are discrete commands.
func (TrackSkip) Coalescible() bool { return false }

func (i TrackSkip) String() string {
	if i.Direction < 0 {
		return "track-previous"
	}

	return "track-next"
}

// BrightnessDelta changes zone brightness by Step (positive raises).
type BrightnessDelta struct {
	Step int
}

func (BrightnessDelta) intent() {}

// Coalescible reports that brightness changes merge during throttling.
func (BrightnessDelta) Coalescible() bool { return true }

func (i BrightnessDelta) String() string { return fmt.Sprintf("brightness%+d", i.Step) }

// PowerToggle inverts the on state of the target zone.
type PowerToggle struct{}

func (PowerToggle) intent() {}

// Coalescible reports that power toggles are discrete commands.
func (PowerToggle) Coalescible() bool { return false }

func (PowerToggle) String() string { return "power-toggle" }

// ZoneCycle moves the zone selection to the target zone. The successful
// call flashes the zone, confirming both its existence and the switch;
// the daemon commits the selection only on that success.
type ZoneCycle struct{}

func (ZoneCycle) intent() {}

// Coalescible reports that zone cycling is a discrete command.
func (ZoneCycle) Coalescible() bool { return false }

func (ZoneCycle) String() string { return "zone-cycle" }

// Flash fires a single visual alert on the target zone.
type Flash struct{}

func (Flash) intent() {}

// Coalescible reports that flashes are discrete commands.
func (Flash) Coalescible() bool { return false }

func (Flash) String() string { return "flash" }

// Coalesce merges a newer intent into a pending one. Deltas of the same
// kind sum their steps; anything else replaces the pending intent, so the
// newest intent is never lost. The boolean reports whether a merge happened.
func Coalesce(pending, next Intent) (Intent, bool) {
	switch p := pending.(type) {
	case VolumeDelta:
		if n, ok := next.(VolumeDelta); ok {
			return VolumeDelta{Step: p.Step + n.Step}, true
		}
	case BrightnessDelta:
		if n, ok := next.(BrightnessDelta); ok {
			return BrightnessDelta{Step: p.Step + n.Step}, true
		}
	}

	return next, false
}

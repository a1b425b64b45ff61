package actuator

import (
	"context"
	"errors"
)

// ErrTargetNotFound reports that the addressed group or zone does not
// currently exist: nothing is playing, the name is unknown to the device,
// or the bridge is not paired. Callers treat it as an expected steady
// state and drop the command with a debug log.
var ErrTargetNotFound = errors.New("target not found")

// Audio drives a networked audio system addressed by group name.
type Audio interface {
	// AdjustVolume changes the group volume by delta. The device clamps
	// the result to its own range.
	AdjustVolume(ctx context.Context, group string, delta int) error
	// PlayPause toggles playback on the group.
	PlayPause(ctx context.Context, group string) error
	// Skip moves to the next (+1) or previous (-1) track.
	Skip(ctx context.Context, group string, direction int) error
}

// GroupFinder locates the group that is currently playing.
type GroupFinder interface {
	// FindActiveGroup returns the name of the first playing group,
	// or ErrTargetNotFound when nothing is playing.
	FindActiveGroup(ctx context.Context) (string, error)
}

// Lighting drives a networked lighting system addressed by zone name.
type Lighting interface {
	// AdjustBrightness changes the zone brightness by delta. Raising a
	// zone that is off turns it on; lowering to the floor turns it off.
	AdjustBrightness(ctx context.Context, zone string, delta int) error
	// TogglePower inverts the zone's on state.
	TogglePower(ctx context.Context, zone string) error
	// Flash fires a single visual alert on the zone.
	Flash(ctx context.Context, zone string) error
}

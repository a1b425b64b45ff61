package hue

import (
	"context"
	"fmt"
	"strings"

	"github.com/amimof/huego"

	"github.com/oshokin/smart-dial/internal/actuator"
	"github.com/oshokin/smart-dial/internal/domain/dial"
)

const (
	// minBrightness is the dimmest level a lit zone reports.
	minBrightness = 1
	// maxBrightness is the brightest level the API accepts.
	maxBrightness = 254

	// alertSelect fires a single breathe cycle.
	alertSelect = "select"
)

// Client drives the zones of one paired bridge.
type Client struct {
	bridge *huego.Bridge
}

// NewClient returns a client for the bridge the credentials were paired with.
func NewClient(creds *dial.HueCredentials) *Client {
	return &Client{
		bridge: huego.New(creds.Host, creds.Username),
	}
}

// AdjustBrightness changes the zone brightness by delta. Raising a zone
// that is off turns it on at the new level; dimming to the floor turns it
// off; anything else just sets the level.
func (c *Client) AdjustBrightness(ctx context.Context, zone string, delta int) error {
	group, err := c.group(ctx, zone)
	if err != nil {
		return err
	}

	action := planBrightness(currentBrightness(group), anyOn(group), delta)

	switch {
	case action.TurnOn:
		err = group.SetStateContext(ctx, huego.State{On: true, Bri: action.Level})
	case action.TurnOff:
		err = group.OffContext(ctx)
	default:
		err = group.BriContext(ctx, action.Level)
	}

	if err != nil {
		return fmt.Errorf("set brightness on %q: %w", zone, err)
	}

	return nil
}

// TogglePower inverts the zone's on state. A zone counts as on when any
// of its lights is on.
func (c *Client) TogglePower(ctx context.Context, zone string) error {
	group, err := c.group(ctx, zone)
	if err != nil {
		return err
	}

	if anyOn(group) {
		err = group.OffContext(ctx)
	} else {
		err = group.OnContext(ctx)
	}

	if err != nil {
		return fmt.Errorf("toggle power on %q: %w", zone, err)
	}

	return nil
}

// ZoneNames lists the group names known to the bridge, in bridge order.
func (c *Client) ZoneNames(ctx context.Context) ([]string, error) {
	groups, err := c.bridge.GetGroupsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	names := make([]string, 0, len(groups))
	for _, group := range groups {
		names = append(names, group.Name)
	}

	return names, nil
}

// Flash fires a single visual alert on the zone.
func (c *Client) Flash(ctx context.Context, zone string) error {
	group, err := c.group(ctx, zone)
	if err != nil {
		return err
	}

	if err = group.AlertContext(ctx, alertSelect); err != nil {
		return fmt.Errorf("flash %q: %w", zone, err)
	}

	return nil
}

// group finds the zone's bridge group by name.
func (c *Client) group(ctx context.Context, zone string) (*huego.Group, error) {
	groups, err := c.bridge.GetGroupsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	group, ok := findGroup(groups, zone)
	if !ok {
		return nil, actuator.ErrTargetNotFound
	}

	return group, nil
}

// findGroup matches a group by name, case-insensitively.
func findGroup(groups []huego.Group, zone string) (*huego.Group, bool) {
	for i := range groups {
		if strings.EqualFold(groups[i].Name, zone) {
			return &groups[i], true
		}
	}

	return nil, false
}

// brightnessAction describes the single bridge call AdjustBrightness makes.
type brightnessAction struct {
	TurnOn  bool
	TurnOff bool
	Level   uint8
}

// planBrightness computes the brightness action from the zone's current
// level and on state.
func planBrightness(current uint8, on bool, delta int) brightnessAction {
	level := int(current) + delta
	if level < minBrightness {
		level = minBrightness
	}

	if level > maxBrightness {
		level = maxBrightness
	}

	switch {
	case delta > 0 && !on:
		return brightnessAction{TurnOn: true, Level: uint8(level)}
	case delta < 0 && level <= minBrightness:
		return brightnessAction{TurnOff: true}
	default:
		return brightnessAction{Level: uint8(level)}
	}
}

// currentBrightness reads the group's last commanded brightness.
func currentBrightness(group *huego.Group) uint8 {
	if group.State == nil {
		return 0
	}

	return group.State.Bri
}

// anyOn reports whether any light in the group is on.
func anyOn(group *huego.Group) bool {
	if group.GroupState == nil {
		return false
	}

	return group.GroupState.AnyOn
}

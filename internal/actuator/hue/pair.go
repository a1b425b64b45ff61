package hue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amimof/huego"

	"github.com/oshokin/smart-dial/internal/logger"
)

// linkButtonErrorType is the bridge API error asking for its button.
const linkButtonErrorType = 101

// retryInterval is the pause between pairing attempts.
const retryInterval = time.Second

// Discover returns the bridge at address, or the first bridge the Hue
// discovery endpoint reports when address is empty.
func Discover(ctx context.Context, address string) (*huego.Bridge, error) {
	if address != "" {
		return huego.New(address, ""), nil
	}

	bridge, err := huego.DiscoverContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover bridge: %w", err)
	}

	return bridge, nil
}

// Pair requests an API user from the bridge, retrying every second until
// the link button is pressed or the context expires. The returned username
// is what the daemon authenticates with from then on.
func Pair(ctx context.Context, bridge *huego.Bridge, deviceType string) (string, error) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		username, err := bridge.CreateUserContext(ctx, deviceType)
		if err == nil {
			return username, nil
		}

		if !isLinkButtonError(err) {
			return "", fmt.Errorf("create user: %w", err)
		}

		logger.Info(ctx, "waiting for the link button on the bridge to be pressed")

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("pairing: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// isLinkButtonError reports whether the bridge refused the request because
// its link button has not been pressed yet.
func isLinkButtonError(err error) bool {
	var apiErr *huego.APIError

	return errors.As(err, &apiErr) && apiErr.Type == linkButtonErrorType
}

// Zones lists the group names the bridge knows, for pairing output.
func Zones(ctx context.Context, bridge *huego.Bridge) ([]string, error) {
	groups, err := bridge.GetGroupsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	names := make([]string, 0, len(groups))
	for _, group := range groups {
		names = append(names, group.Name)
	}

	return names, nil
}

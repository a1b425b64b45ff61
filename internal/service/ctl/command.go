package ctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/smart-dial/internal/api/ipc"
	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/domain/dial"
	"github.com/oshokin/smart-dial/internal/logger"
)

// Action identifies the control operation to perform.
type Action string

// Control operations.
const (
	ActionStatus Action = "status"
	ActionRotate Action = "rotate"
	ActionPress  Action = "press"
)

// Options configures a single control call to a running daemon.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// SocketPath overrides the control socket path from the settings.
	SocketPath string
	// Action selects the operation.
	Action Action
	// Direction is the rotation direction for ActionRotate.
	Direction string
	// Count repeats the gesture; zero means one.
	Count int
	// Output receives human-readable results, stdout when nil.
	Output io.Writer
}

var errUnknownAction = errors.New("unknown action")

// Run performs one control operation against a running daemon.
func Run(ctx context.Context, opts *Options) error {
	// Results share stdout with the logger, keep ambient logging to warnings.
	ctx = logger.ToContext(ctx, logger.New(nil, logger.WithLevel(zapcore.WarnLevel)))
	ctx = logger.WithName(ctx, "dial-ctl")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	socketPath := cfg.IPC.SocketPath
	if opts.SocketPath != "" {
		socketPath = opts.SocketPath
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	client, err := ipc.Dial(ctx, socketPath, ipc.WithCallTimeout(cfg.Dispatch.CallTimeout()))
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	switch opts.Action {
	case ActionStatus:
		status, err := client.Status(ctx)
		if err != nil {
			return err
		}

		printStatus(out, status)

		return nil
	case ActionRotate:
		direction := dial.Direction(opts.Direction)
		if direction == "" {
			direction = dial.Clockwise
		}

		if err = client.Rotate(ctx, direction, opts.Count); err != nil {
			return err
		}

		fmt.Fprintf(out, "injected %d %s rotation step(s)\n", normalizeCount(opts.Count), direction)

		return nil
	case ActionPress:
		if err = client.Press(ctx, opts.Count); err != nil {
			return err
		}

		fmt.Fprintf(out, "injected %d press(es)\n", normalizeCount(opts.Count))

		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownAction, opts.Action)
	}
}

func printStatus(w io.Writer, status *dial.Status) {
	fmt.Fprintf(w, "mode:         %s\n", status.Mode)
	fmt.Fprintf(w, "sonos group:  %s\n", valueOrDash(status.SonosGroup))
	fmt.Fprintf(w, "hue zone:     %s\n", valueOrDash(status.HueZone))
	fmt.Fprintf(w, "hue paired:   %t\n", status.Paired)

	if status.LastIntent != "" {
		fmt.Fprintf(w, "last intent:  %s\n", status.LastIntent)
	}

	if status.LastError != "" {
		fmt.Fprintf(w, "last error:   %s\n", status.LastError)
	}

	if !status.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "updated:      %s\n", status.UpdatedAt.Format(time.RFC3339))
	}
}

func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}

	return value
}

func normalizeCount(count int) int {
	if count <= 0 {
		return 1
	}

	return count
}

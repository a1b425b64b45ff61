package input

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/oshokin/smart-dial/internal/domain/dial"
	"github.com/oshokin/smart-dial/internal/logger"
)

// Linux input protocol constants for the subset the dial uses.
const (
	evKey = 0x01
	evRel = 0x02

	keyMute       = 113
	keyVolumeDown = 114
	keyVolumeUp   = 115

	relDial = 0x07

	valueRelease = 0
	valuePress   = 1
	valueRepeat  = 2
)

const (
	sysInputDir = "/sys/class/input"
	devInputDir = "/dev/input"

	// epollTimeoutMS bounds one wait so the loop observes ctx.
	epollTimeoutMS = 500
)

// ErrDeviceNotFound is returned when no input device matches the
// configured name pattern.
var ErrDeviceNotFound = errors.New("dial device not found")

// rawEvent mirrors struct input_event on 64-bit Linux.
type rawEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// rawEventSize is the wire size of rawEvent.
const rawEventSize = 24

// EvdevSource reads the dial's kernel input device.
type EvdevSource struct {
	pattern string
}

// NewEvdevSource returns a source that reads the first input device whose
// name contains pattern, case-insensitively.
func NewEvdevSource(pattern string) *EvdevSource {
	return &EvdevSource{pattern: pattern}
}

// Run finds the device and decodes its events until ctx ends or the
// device read fails (receiver unplugged).
func (s *EvdevSource) Run(ctx context.Context, events chan<- dial.InputEvent) error {
	path, name, err := findDevice(s.pattern)
	if err != nil {
		return err
	}

	logger.Infof(ctx, "reading dial events from %s (%s)", path, name)

	device, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input device: %w", err)
	}
	defer device.Close()

	epollFD, err := unix.EpollCreate1(0)
	if err != nil {
		return fmt.Errorf("create epoll instance: %w", err)
	}
	defer unix.Close(epollFD)

	deviceFD := int(device.Fd())
	registration := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(deviceFD)}

	if err = unix.EpollCtl(epollFD, unix.EPOLL_CTL_ADD, deviceFD, &registration); err != nil {
		return fmt.Errorf("register device with epoll: %w", err)
	}

	var (
		fired = make([]unix.EpollEvent, 1)
		buf   = make([]byte, rawEventSize)
	)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, waitErr := unix.EpollWait(epollFD, fired, epollTimeoutMS)
		if waitErr != nil {
			if errors.Is(waitErr, unix.EINTR) {
				continue
			}

			return fmt.Errorf("wait for device events: %w", waitErr)
		}

		if n == 0 {
			continue
		}

		if _, err = io.ReadFull(device, buf); err != nil {
			return fmt.Errorf("read input device: %w", err)
		}

		var raw rawEvent
		if err = binary.Read(bytes.NewReader(buf), binary.LittleEndian, &raw); err != nil {
			return fmt.Errorf("decode input event: %w", err)
		}

		for _, event := range decodeRaw(raw, time.Now()) {
			select {
			case events <- event:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// decodeRaw maps one kernel event to dial events.
func decodeRaw(raw rawEvent, now time.Time) []dial.InputEvent {
	switch raw.Type {
	case evKey:
		return decodeKey(raw, now)
	case evRel:
		return decodeRel(raw, now)
	}

	return nil
}

func decodeKey(raw rawEvent, now time.Time) []dial.InputEvent {
	switch raw.Code {
	case keyVolumeUp:
		if raw.Value == valuePress || raw.Value == valueRepeat {
			return []dial.InputEvent{dial.Rotate{Direction: dial.Clockwise, At: now}}
		}
	case keyVolumeDown:
		if raw.Value == valuePress || raw.Value == valueRepeat {
			return []dial.InputEvent{dial.Rotate{Direction: dial.CounterClockwise, At: now}}
		}
	case keyMute:
		// Autorepeat on the button is noise, only real edges pass.
		switch raw.Value {
		case valuePress:
			return []dial.InputEvent{dial.ButtonEdge{State: dial.ButtonDown, At: now}}
		case valueRelease:
			return []dial.InputEvent{dial.ButtonEdge{State: dial.ButtonUp, At: now}}
		}
	}

	return nil
}

// decodeRel expands a relative dial report into one rotate per detent.
func decodeRel(raw rawEvent, now time.Time) []dial.InputEvent {
	if raw.Code != relDial || raw.Value == 0 {
		return nil
	}

	direction := dial.Clockwise

	steps := int(raw.Value)
	if steps < 0 {
		direction = dial.CounterClockwise
		steps = -steps
	}

	events := make([]dial.InputEvent, 0, steps)
	for range steps {
		events = append(events, dial.Rotate{Direction: direction, At: now})
	}

	return events
}

// findDevice scans /sys/class/input for the first event device whose
// reported name contains pattern, case-insensitively.
func findDevice(pattern string) (path, name string, err error) {
	entries, err := os.ReadDir(sysInputDir)
	if err != nil {
		return "", "", fmt.Errorf("scan input devices: %w", err)
	}

	needle := strings.ToLower(pattern)

	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "event") {
			continue
		}

		raw, readErr := os.ReadFile(filepath.Join(sysInputDir, entry.Name(), "device", "name"))
		if readErr != nil {
			continue
		}

		deviceName := strings.TrimSpace(string(raw))
		if strings.Contains(strings.ToLower(deviceName), needle) {
			return filepath.Join(devInputDir, entry.Name()), deviceName, nil
		}
	}

	return "", "", fmt.Errorf("%w: no device name contains %q", ErrDeviceNotFound, pattern)
}

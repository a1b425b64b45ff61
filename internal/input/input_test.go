package input

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/smart-dial/internal/domain/dial"
)

// TestRawEventSize pins the wire layout of the kernel event struct.
func TestRawEventSize(t *testing.T) {
	t.Parallel()

	require.Equal(t, rawEventSize, binary.Size(rawEvent{}))
}

// TestDecodeRaw checks the kernel-to-domain event mapping.
func TestDecodeRaw(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name string
		raw  rawEvent
		want []dial.InputEvent
	}{
		{
			"volume up press rotates cw",
			rawEvent{Type: evKey, Code: keyVolumeUp, Value: valuePress},
			[]dial.InputEvent{dial.Rotate{Direction: dial.Clockwise, At: now}},
		},
		{
			"volume up autorepeat rotates cw",
			rawEvent{Type: evKey, Code: keyVolumeUp, Value: valueRepeat},
			[]dial.InputEvent{dial.Rotate{Direction: dial.Clockwise, At: now}},
		},
		{
			"volume down press rotates ccw",
			rawEvent{Type: evKey, Code: keyVolumeDown, Value: valuePress},
			[]dial.InputEvent{dial.Rotate{Direction: dial.CounterClockwise, At: now}},
		},
		{
			"volume key release is dropped",
			rawEvent{Type: evKey, Code: keyVolumeUp, Value: valueRelease},
			nil,
		},
		{
			"mute press is button down",
			rawEvent{Type: evKey, Code: keyMute, Value: valuePress},
			[]dial.InputEvent{dial.ButtonEdge{State: dial.ButtonDown, At: now}},
		},
		{
			"mute release is button up",
			rawEvent{Type: evKey, Code: keyMute, Value: valueRelease},
			[]dial.InputEvent{dial.ButtonEdge{State: dial.ButtonUp, At: now}},
		},
		{
			"mute autorepeat is dropped",
			rawEvent{Type: evKey, Code: keyMute, Value: valueRepeat},
			nil,
		},
		{
			"relative dial expands detents",
			rawEvent{Type: evRel, Code: relDial, Value: -2},
			[]dial.InputEvent{
				dial.Rotate{Direction: dial.CounterClockwise, At: now},
				dial.Rotate{Direction: dial.CounterClockwise, At: now},
			},
		},
		{
			"other relative axes are dropped",
			rawEvent{Type: evRel, Code: 0x00, Value: 1},
			nil,
		},
		{
			"unknown key is dropped",
			rawEvent{Type: evKey, Code: 30, Value: valuePress},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, decodeRaw(tt.raw, now))
		})
	}
}

// TestDecodeMockLine checks character-to-gesture expansion.
func TestDecodeMockLine(t *testing.T) {
	t.Parallel()

	now := time.Now()

	events := decodeMockLine("+-p", now)
	require.Equal(t, []dial.InputEvent{
		dial.Rotate{Direction: dial.Clockwise, At: now},
		dial.Rotate{Direction: dial.CounterClockwise, At: now},
		dial.ButtonEdge{State: dial.ButtonDown, At: now},
		dial.ButtonEdge{State: dial.ButtonUp, At: now},
	}, events)

	// A triple click is three full press pairs.
	require.Len(t, decodeMockLine("ppp", now), 6)

	// Unknown characters are ignored.
	require.Empty(t, decodeMockLine("hello", now))
}

// TestMockSourceRun verifies line scanning, event order and the closed
// error at EOF.
func TestMockSourceRun(t *testing.T) {
	t.Parallel()

	source := NewMockSource(strings.NewReader("+\npp\n"))
	events := make(chan dial.InputEvent, 16)

	err := source.Run(context.Background(), events)
	require.ErrorIs(t, err, errMockInputClosed)
	close(events)

	var collected []dial.InputEvent
	for event := range events {
		collected = append(collected, event)
	}

	require.Len(t, collected, 5)
	require.IsType(t, dial.Rotate{}, collected[0])
	require.IsType(t, dial.ButtonEdge{}, collected[1])
}

// TestMockSourceStopsOnContext verifies cancellation wins over a blocked send.
func TestMockSourceStopsOnContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := NewMockSource(strings.NewReader("++++\n"))

	// Unbuffered channel with no reader: only cancellation lets Run return.
	err := source.Run(ctx, make(chan dial.InputEvent))
	require.NoError(t, err)
}

package ipc

import (
	"fmt"
	"time"

	"github.com/oshokin/smart-dial/internal/domain/dial"
)

// Request types understood by the daemon.
const (
	// TypeStatus asks for a snapshot of the daemon state.
	TypeStatus = "status"
	// TypeRotate injects synthetic rotation steps.
	TypeRotate = "rotate"
	// TypePress injects synthetic button presses.
	TypePress = "press"
)

// Response statuses.
const (
	statusOK    = "ok"
	statusError = "error"
)

// Request is a single control command sent over the socket.
type Request struct {
	Type      string `json:"type"`
	Direction string `json:"direction,omitempty"`
	Count     int    `json:"count,omitempty"`
}

// Response is the daemon's reply to a Request.
type Response struct {
	Status string       `json:"status"`
	Error  string       `json:"error,omitempty"`
	State  *dial.Status `json:"state,omitempty"`
}

// OK reports whether the daemon accepted the request.
func (r *Response) OK() bool {
	return r != nil && r.Status == statusOK
}

// expandRequest turns a control request into the stream of raw events the
// hardware would have produced, stamped with a single arrival time so a
// multi-press expands into a burst the classifier resolves as one gesture.
func expandRequest(req Request, now time.Time) ([]dial.InputEvent, error) {
	count := req.Count
	if count <= 0 {
		count = 1
	}

	switch req.Type {
	case TypeRotate:
		direction := dial.Direction(req.Direction)
		if direction == "" {
			direction = dial.Clockwise
		}

		if direction != dial.Clockwise && direction != dial.CounterClockwise {
			return nil, fmt.Errorf("unknown direction %q", req.Direction)
		}

		events := make([]dial.InputEvent, 0, count)
		for range count {
			events = append(events, dial.Rotate{Direction: direction, At: now})
		}

		return events, nil
	case TypePress:
		events := make([]dial.InputEvent, 0, 2*count)
		for range count {
			events = append(events,
				dial.ButtonEdge{State: dial.ButtonDown, At: now},
				dial.ButtonEdge{State: dial.ButtonUp, At: now})
		}

		return events, nil
	default:
		return nil, fmt.Errorf("unknown request type %q", req.Type)
	}
}

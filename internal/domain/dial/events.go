package dial

import "time"

// Direction is the rotation direction of the dial.
type Direction string

const (
	// Clockwise raises volume or brightness.
	Clockwise Direction = "cw"
	// CounterClockwise lowers volume or brightness.
	CounterClockwise Direction = "ccw"
)

// Sign returns +1 for clockwise and -1 for counterclockwise rotation.
func (d Direction) Sign() int {
	if d == CounterClockwise {
		return -1
	}

	return 1
}

// EdgeState is the physical state of the dial button.
type EdgeState string

const (
	// ButtonDown is the press edge.
	ButtonDown EdgeState = "down"
	// ButtonUp is the release edge.
	ButtonUp EdgeState = "up"
)

// InputEvent is implemented by every event flowing through the daemon loop.
// Events carry the timestamp of their capture; downstream never reorders them.
type InputEvent interface {
	inputEvent()

	// When returns the capture timestamp of the event.
	When() time.Time
}

// Rotate is a single rotation step of the dial.
type Rotate struct {
	Direction Direction
	At        time.Time
}

func (Rotate) inputEvent() {}

// When returns the capture timestamp of the rotation step.
func (e Rotate) When() time.Time { return e.At }

// ButtonEdge is a raw press or release of the dial button.
type ButtonEdge struct {
	State EdgeState
	At    time.Time
}

func (ButtonEdge) inputEvent() {}

// When returns the capture timestamp of the edge.
func (e ButtonEdge) When() time.Time { return e.At }

// ResolvedClick is a completed click burst: Count full presses separated
// by less than the debounce window. Produced only by the classifier.
type ResolvedClick struct {
	Count int
	At    time.Time
}

func (ResolvedClick) inputEvent() {}

// When returns the time the burst resolved.
func (e ResolvedClick) When() time.Time { return e.At }

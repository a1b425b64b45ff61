package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/smart-dial/internal/domain/dial"
)

// errMockInputClosed is returned when the mock reader reaches EOF,
// which ends the source like an unplugged device.
var errMockInputClosed = errors.New("mock input closed")

// MockSource replays dial gestures typed on a reader: '+' rotates up,
// '-' rotates down, 'p' presses the dial. Characters repeat within a
// line, so "ppp" is a triple click.
type MockSource struct {
	reader io.Reader
}

// NewMockSource returns a source reading gestures from the provided reader.
func NewMockSource(reader io.Reader) *MockSource {
	return &MockSource{reader: reader}
}

// Run scans lines and emits one event per recognized character until the
// reader ends.
func (s *MockSource) Run(ctx context.Context, events chan<- dial.InputEvent) error {
	scanner := bufio.NewScanner(s.reader)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		for _, event := range decodeMockLine(scanner.Text(), time.Now()) {
			select {
			case events <- event:
			case <-ctx.Done():
				return nil
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read mock input: %w", err)
	}

	return errMockInputClosed
}

// decodeMockLine expands one input line into dial events. A press becomes
// a full down-up pair, so multi-click sequences classify exactly like
// hardware clicks.
func decodeMockLine(line string, now time.Time) []dial.InputEvent {
	var events []dial.InputEvent

	for _, char := range line {
		switch char {
		case '+':
			events = append(events, dial.Rotate{Direction: dial.Clockwise, At: now})
		case '-':
			events = append(events, dial.Rotate{Direction: dial.CounterClockwise, At: now})
		case 'p':
			events = append(events,
				dial.ButtonEdge{State: dial.ButtonDown, At: now},
				dial.ButtonEdge{State: dial.ButtonUp, At: now},
			)
		}
	}

	return events
}

package input

import (
	"context"

	"github.com/oshokin/smart-dial/internal/domain/dial"
)

// Source produces raw dial events until the context ends or the device
// disappears. Implementations stamp events with the capture time and never
// reorder them.
type Source interface {
	Run(ctx context.Context, events chan<- dial.InputEvent) error
}

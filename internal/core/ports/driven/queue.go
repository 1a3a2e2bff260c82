package driven

import (
	"context"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

// EventQueue delivers change events. Consumption is at-most-once: a popped
// event is never redelivered.
type EventQueue interface {
	// Pop blocks until an event is available or ctx is done.
	// Returns domain.ErrQueueClosed once the queue is closed.
	Pop(ctx context.Context) (domain.ChangeEvent, error)

	// Push enqueues an event.
	Push(ctx context.Context, event domain.ChangeEvent) error

	// Close releases the queue's resources.
	Close() error
}

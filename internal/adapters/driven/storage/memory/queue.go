package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
)

// Ensure EventQueue implements the interface.
var _ driven.EventQueue = (*EventQueue)(nil)

// EventQueue is an in-process FIFO implementation of driven.EventQueue.
type EventQueue struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
	notify chan struct{}
	closed chan struct{}
	once   sync.Once
}

// NewEventQueue creates an empty queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Push appends an event.
func (q *EventQueue) Push(_ context.Context, event domain.ChangeEvent) error {
	select {
	case <-q.closed:
		return domain.ErrQueueClosed
	default:
	}

	q.mu.Lock()
	q.events = append(q.events, event)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop blocks until an event is available.
func (q *EventQueue) Pop(ctx context.Context) (domain.ChangeEvent, error) {
	for {
		q.mu.Lock()
		if len(q.events) > 0 {
			ev := q.events[0]
			q.events = q.events[1:]
			q.mu.Unlock()
			return ev, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.ChangeEvent{}, ctx.Err()
		case <-q.closed:
			return domain.ChangeEvent{}, domain.ErrQueueClosed
		case <-q.notify:
		}
	}
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close wakes blocked consumers with domain.ErrQueueClosed.
func (q *EventQueue) Close() error {
	q.once.Do(func() { close(q.closed) })
	return nil
}

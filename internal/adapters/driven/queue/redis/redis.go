// Package redis implements driven.EventQueue on a Redis list.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
	"github.com/custodia-labs/embedscan/internal/logger"
)

// DefaultPollTimeout bounds each BLPOP so cancellation is noticed promptly.
const DefaultPollTimeout = time.Second

// Ensure Queue implements the interface.
var _ driven.EventQueue = (*Queue)(nil)

// Options configures the queue.
type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string

	// PollTimeout overrides DefaultPollTimeout.
	PollTimeout time.Duration
}

// Queue pops change events from the head of a Redis list and pushes to its tail.
type Queue struct {
	client  *goredis.Client
	key     string
	timeout time.Duration
	closed  atomic.Bool
}

// New connects to Redis. The connection is established lazily.
func New(opts Options) (*Queue, error) {
	if opts.Key == "" {
		return nil, fmt.Errorf("%w: queue key is required", domain.ErrInvalidInput)
	}
	timeout := opts.PollTimeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	return &Queue{
		client: goredis.NewClient(&goredis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		key:     opts.Key,
		timeout: timeout,
	}, nil
}

// Ping checks the connection.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Pop blocks until an event is available. Undecodable payloads are dropped
// with a warning.
func (q *Queue) Pop(ctx context.Context) (domain.ChangeEvent, error) {
	for {
		if q.closed.Load() {
			return domain.ChangeEvent{}, domain.ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return domain.ChangeEvent{}, err
		}

		res, err := q.client.BLPop(ctx, q.timeout, q.key).Result()
		switch {
		case errors.Is(err, goredis.Nil):
			continue
		case errors.Is(err, goredis.ErrClosed):
			return domain.ChangeEvent{}, domain.ErrQueueClosed
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.ChangeEvent{}, ctxErr
			}
			return domain.ChangeEvent{}, fmt.Errorf("blpop %s: %w", q.key, err)
		}

		// BLPOP replies [key, value].
		if len(res) != 2 {
			continue
		}
		ev, err := domain.ParseChangeEvent([]byte(res[1]))
		if err != nil {
			logger.Warn("dropping queue payload: %v", err)
			continue
		}
		return ev, nil
	}
}

// Push appends an event to the list.
func (q *Queue) Push(ctx context.Context, event domain.ChangeEvent) error {
	if q.closed.Load() {
		return domain.ErrQueueClosed
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", q.key, err)
	}
	return nil
}

// Close closes the client.
func (q *Queue) Close() error {
	if q.closed.Swap(true) {
		return nil
	}
	return q.client.Close()
}

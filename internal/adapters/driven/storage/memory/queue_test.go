package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := NewEventQueue()
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, domain.ChangeEvent{Title: "File:A.jpg"}))
	require.NoError(t, q.Push(ctx, domain.ChangeEvent{Title: "File:B.jpg"}))
	assert.Equal(t, 2, q.Len())

	ev, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "File:A.jpg", ev.Title)

	ev, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "File:B.jpg", ev.Title)
}

func TestEventQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewEventQueue()
	ctx := context.Background()

	got := make(chan domain.ChangeEvent)
	go func() {
		ev, _ := q.Pop(ctx)
		got <- ev
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Push(ctx, domain.ChangeEvent{Title: "File:Late.png"}))

	select {
	case ev := <-got:
		assert.Equal(t, "File:Late.png", ev.Title)
	case <-time.After(time.Second):
		t.Fatal("Pop did not return")
	}
}

func TestEventQueue_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEventQueue().Pop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEventQueue_Close(t *testing.T) {
	q := NewEventQueue()
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	_, err := q.Pop(context.Background())
	assert.ErrorIs(t, err, domain.ErrQueueClosed)
	assert.ErrorIs(t, q.Push(context.Background(), domain.ChangeEvent{}), domain.ErrQueueClosed)
}

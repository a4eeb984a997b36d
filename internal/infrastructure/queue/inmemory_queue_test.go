package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
)

func makeEvent(partition string) delivery.QueuedEvent {
	return delivery.QueuedEvent{
		EventID:      uuid.New(),
		TenantID:     uuid.New(),
		Provider:     delivery.ProviderCareem,
		PartitionKey: partition,
	}
}

func TestInMemoryQueue_PreservesEnqueueOrder(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	first, second, third := makeEvent("order-1"), makeEvent("order-1"), makeEvent("order-2")
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))
	require.NoError(t, q.Enqueue(ctx, third))

	batch, err := q.Dequeue(ctx, 10, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, first.EventID, batch[0].EventID)
	assert.Equal(t, second.EventID, batch[1].EventID)
	assert.Equal(t, third.EventID, batch[2].EventID)
}

func TestInMemoryQueue_DequeueRespectsMax(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, makeEvent("p")))
	}

	batch, err := q.Dequeue(ctx, 2, time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	rest, err := q.Dequeue(ctx, 10, time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
}

func TestInMemoryQueue_EmptyDequeueTimesOut(t *testing.T) {
	q := NewInMemoryQueue()

	start := time.Now()
	batch, err := q.Dequeue(context.Background(), 1, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestInMemoryQueue_EnqueueWakesBlockedConsumer(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	done := make(chan []delivery.QueuedEvent, 1)
	go func() {
		batch, _ := q.Dequeue(ctx, 1, 2*time.Second)
		done <- batch
	}()

	time.Sleep(10 * time.Millisecond)
	evt := makeEvent("p")
	require.NoError(t, q.Enqueue(ctx, evt))

	select {
	case batch := <-done:
		require.Len(t, batch, 1)
		assert.Equal(t, evt.EventID, batch[0].EventID)
	case <-time.After(time.Second):
		t.Fatal("blocked consumer was not woken by enqueue")
	}
}

func TestInMemoryQueue_UnackedEventsAreRedelivered(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()

	evt := makeEvent("order-9")
	require.NoError(t, q.Enqueue(ctx, evt))

	batch, err := q.Dequeue(ctx, 1, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	// Not acked: a redelivery pass makes it visible again.
	q.Redeliver()
	batch, err = q.Dequeue(ctx, 1, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, evt.EventID, batch[0].EventID)

	// Acked: gone for good.
	require.NoError(t, q.Ack(ctx, batch[0]))
	q.Redeliver()
	batch, err = q.Dequeue(ctx, 1, time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

package queue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
)

// InMemoryQueue implements delivery.WebhookQueue with a process-local slice.
// Dequeued entries stay in-flight until acked; unacked entries are
// redelivered on the next Dequeue, matching the at-least-once contract of
// the Redis implementation.
type InMemoryQueue struct {
	mu       sync.Mutex
	seq      int
	pending  []delivery.QueuedEvent
	inflight map[string]delivery.QueuedEvent
	notify   chan struct{}
}

// NewInMemoryQueue creates an empty in-memory queue.
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		inflight: make(map[string]delivery.QueuedEvent),
		notify:   make(chan struct{}, 1),
	}
}

// Enqueue appends the event and wakes one blocked consumer.
func (q *InMemoryQueue) Enqueue(_ context.Context, evt delivery.QueuedEvent) error {
	q.mu.Lock()
	q.seq++
	evt.Receipt = strconv.Itoa(q.seq)
	q.pending = append(q.pending, evt)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue returns up to max events, blocking up to block when empty.
func (q *InMemoryQueue) Dequeue(ctx context.Context, max int, block time.Duration) ([]delivery.QueuedEvent, error) {
	deadline := time.After(block)
	for {
		if batch := q.take(max); len(batch) > 0 {
			return batch, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, nil
		case <-q.notify:
		}
	}
}

// Ack removes the entry from the in-flight set.
func (q *InMemoryQueue) Ack(_ context.Context, evt delivery.QueuedEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, evt.Receipt)
	return nil
}

// Redeliver moves all in-flight entries back to the head of the queue. The
// Redis implementation gets this behaviour from the pending entries list;
// tests call it directly to exercise retry paths.
func (q *InMemoryQueue) Redeliver() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, evt := range q.inflight {
		q.pending = append([]delivery.QueuedEvent{evt}, q.pending...)
	}
	q.inflight = make(map[string]delivery.QueuedEvent)
}

func (q *InMemoryQueue) take(max int) []delivery.QueuedEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := max
	if n > len(q.pending) {
		n = len(q.pending)
	}
	if n == 0 {
		return nil
	}

	batch := make([]delivery.QueuedEvent, n)
	copy(batch, q.pending[:n])
	q.pending = q.pending[n:]
	for _, evt := range batch {
		q.inflight[evt.Receipt] = evt
	}
	return batch
}

var _ delivery.WebhookQueue = (*InMemoryQueue)(nil)

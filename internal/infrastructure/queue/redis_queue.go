// Package queue implements the webhook processing queue. The Redis Streams
// implementation gives at-least-once delivery across instances via a
// consumer group; the in-memory implementation backs tests and
// single-instance deployments.
package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
)

const (
	fieldEventID   = "event_id"
	fieldTenantID  = "tenant_id"
	fieldProvider  = "provider"
	fieldPartition = "partition"

	// reclaimMinIdle is how long an entry may sit unacknowledged in any
	// consumer's pending list before another Dequeue claims it back. Long
	// enough that a live consumer finishes its batch, short enough that a
	// crashed one does not strand events.
	reclaimMinIdle = time.Minute
)

// RedisQueue implements delivery.WebhookQueue on a Redis Stream with a
// consumer group. Entries are acknowledged with XACK; unacknowledged
// entries stay in the pending list and are claimed back by Dequeue once
// they have been idle for reclaimMinIdle, so a crashed consumer's events
// are redelivered rather than stranded. The consumer name is stable per
// host so a restarted instance reads its own pending list first.
type RedisQueue struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
	logger   *zap.Logger
}

// NewRedisQueue creates the queue and ensures the consumer group exists.
func NewRedisQueue(ctx context.Context, client *redis.Client, stream, group string, logger *zap.Logger) (*RedisQueue, error) {
	if stream == "" {
		stream = "delivery:webhooks"
	}
	if group == "" {
		group = "webhook-workers"
	}

	// MKSTREAM creates the stream with the group when it does not exist yet.
	err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &RedisQueue{
		client:   client,
		stream:   stream,
		group:    group,
		consumer: consumerName(),
		logger:   logger.Named("queue"),
	}, nil
}

// consumerName derives a consumer name that survives restarts of the same
// instance. A random name would abandon the pending entries of every
// previous run.
func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "consumer-" + uuid.NewString()
	}
	return "consumer-" + host
}

func isBusyGroup(err error) bool {
	var redisErr redis.Error
	return errors.As(err, &redisErr) && len(redisErr.Error()) >= 9 && redisErr.Error()[:9] == "BUSYGROUP"
}

// Enqueue appends the event to the stream.
func (q *RedisQueue) Enqueue(ctx context.Context, evt delivery.QueuedEvent) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{
			fieldEventID:   evt.EventID.String(),
			fieldTenantID:  evt.TenantID.String(),
			fieldProvider:  evt.Provider.String(),
			fieldPartition: evt.PartitionKey,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue webhook event: %w", err)
	}
	return nil
}

// Dequeue first claims back entries left pending by a dead consumer, then
// reads new entries, blocking up to block when the stream is empty. Entries
// come out in stream order; the consumer routes them onto workers by
// partition key to keep per-order ordering.
func (q *RedisQueue) Dequeue(ctx context.Context, max int, block time.Duration) ([]delivery.QueuedEvent, error) {
	if reclaimed, err := q.reclaim(ctx, max); err != nil {
		return nil, err
	} else if len(reclaimed) > 0 {
		return reclaimed, nil
	}

	res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(max),
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue webhook events: %w", err)
	}

	var out []delivery.QueuedEvent
	for _, stream := range res {
		out = append(out, q.decodeBatch(ctx, stream.Messages)...)
	}
	return out, nil
}

// reclaim takes over pending entries whose consumer has gone quiet for
// reclaimMinIdle, so events from a crashed instance are redelivered instead
// of staying queued forever.
func (q *RedisQueue) reclaim(ctx context.Context, max int) ([]delivery.QueuedEvent, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  reclaimMinIdle,
		Start:    "0-0",
		Count:    int64(max),
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to reclaim pending webhook events: %w", err)
	}
	if len(msgs) > 0 {
		q.logger.Info("reclaimed pending queue entries", zap.Int("count", len(msgs)))
	}
	return q.decodeBatch(ctx, msgs), nil
}

func (q *RedisQueue) decodeBatch(ctx context.Context, msgs []redis.XMessage) []delivery.QueuedEvent {
	var out []delivery.QueuedEvent
	for _, msg := range msgs {
		evt, err := q.decode(msg)
		if err != nil {
			// A malformed entry can never be processed; drop it so it
			// does not wedge the pending list.
			q.logger.Error("dropping malformed queue entry",
				zap.String("id", msg.ID), zap.Error(err))
			_ = q.client.XAck(ctx, q.stream, q.group, msg.ID).Err()
			continue
		}
		out = append(out, evt)
	}
	return out
}

// Ack confirms the entry referenced by the event's receipt.
func (q *RedisQueue) Ack(ctx context.Context, evt delivery.QueuedEvent) error {
	if evt.Receipt == "" {
		return errors.New("queue: event has no receipt")
	}
	if err := q.client.XAck(ctx, q.stream, q.group, evt.Receipt).Err(); err != nil {
		return fmt.Errorf("failed to ack webhook event: %w", err)
	}
	return nil
}

func (q *RedisQueue) decode(msg redis.XMessage) (delivery.QueuedEvent, error) {
	str := func(field string) string {
		if v, ok := msg.Values[field].(string); ok {
			return v
		}
		return ""
	}

	eventID, err := uuid.Parse(str(fieldEventID))
	if err != nil {
		return delivery.QueuedEvent{}, fmt.Errorf("bad event id: %w", err)
	}
	tenantID, err := uuid.Parse(str(fieldTenantID))
	if err != nil {
		return delivery.QueuedEvent{}, fmt.Errorf("bad tenant id: %w", err)
	}
	provider := delivery.ProviderCode(str(fieldProvider))
	if !provider.IsValid() {
		return delivery.QueuedEvent{}, delivery.ErrInvalidProviderCode
	}

	return delivery.QueuedEvent{
		EventID:      eventID,
		TenantID:     tenantID,
		Provider:     provider,
		PartitionKey: str(fieldPartition),
		Receipt:      msg.ID,
	}, nil
}

var _ delivery.WebhookQueue = (*RedisQueue)(nil)

package delivery

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/metrics"
	"github.com/restaurant-platform/backend/internal/infrastructure/resilience"
	"github.com/google/uuid"
)

const (
	// coordinatorBatchSize is how many queued events one poll drains.
	coordinatorBatchSize = 16
	// coordinatorBlock is how long a poll waits for work.
	coordinatorBlock = 5 * time.Second
	// maxEventRetries dead-letters an event after this many failed attempts.
	maxEventRetries = 5
)

// OrderCoordinator consumes queued webhook events and drives the canonical
// order lifecycle: first sight of an external order creates the internal
// order and its mapping, later events advance the state monotonically.
// Processing is idempotent, so at-least-once queue delivery is safe.
type OrderCoordinator struct {
	queue    delivery.WebhookQueue
	events   delivery.WebhookEventRepository
	mappings delivery.OrderMappingRepository
	configs  delivery.ProviderConfigRepository
	orders   delivery.OrderWriter
	registry delivery.AdapterRegistry
	tokens   *TokenSource
	retry    resilience.Policy
	breaker  *resilience.Breaker
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewOrderCoordinator creates a new OrderCoordinator.
func NewOrderCoordinator(
	queue delivery.WebhookQueue,
	events delivery.WebhookEventRepository,
	mappings delivery.OrderMappingRepository,
	configs delivery.ProviderConfigRepository,
	orders delivery.OrderWriter,
	registry delivery.AdapterRegistry,
	tokens *TokenSource,
	breaker *resilience.Breaker,
	m *metrics.Metrics,
	logger *zap.Logger,
) *OrderCoordinator {
	return &OrderCoordinator{
		queue:    queue,
		events:   events,
		mappings: mappings,
		configs:  configs,
		orders:   orders,
		registry: registry,
		tokens:   tokens,
		retry:    resilience.DefaultPolicy(),
		breaker:  breaker,
		metrics:  m,
		logger:   logger.Named("order-coordinator"),
	}
}

// Run consumes the queue until the context is cancelled. A single dequeue
// loop fans events out to workers keyed by partition, so every event for
// one external order lands on the same worker and is applied in enqueue
// order. Without that routing two workers could read the same mapping
// snapshot and the slower write would roll the canonical state back.
func (c *OrderCoordinator) Run(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	c.logger.Info("order coordinator started", zap.Int("workers", workers))

	lanes := make([]chan delivery.QueuedEvent, workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan delivery.QueuedEvent, coordinatorBatchSize)
		wg.Add(1)
		go func(lane <-chan delivery.QueuedEvent) {
			defer wg.Done()
			for evt := range lane {
				c.Process(ctx, evt)
			}
		}(lanes[i])
	}
	defer func() {
		for _, lane := range lanes {
			close(lane)
		}
		wg.Wait()
		c.logger.Info("order coordinator stopped")
	}()

	for {
		batch, err := c.queue.Dequeue(ctx, coordinatorBatchSize, coordinatorBlock)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if ctx.Err() != nil {
			return
		}
		for _, evt := range batch {
			lanes[laneFor(evt.PartitionKey, workers)] <- evt
		}
	}
}

// laneFor hashes the partition key onto a worker index.
func laneFor(key string, workers int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(workers))
}

// Process handles one queued event end to end. Failures fall into two
// classes: malformed payloads are dead-lettered immediately, everything else
// burns one retry and is redelivered until the budget runs out.
func (c *OrderCoordinator) Process(ctx context.Context, evt delivery.QueuedEvent) {
	start := time.Now()

	event, err := c.events.FindByID(ctx, evt.EventID)
	if err != nil {
		if errors.Is(err, delivery.ErrEventNotFound) {
			c.ack(ctx, evt)
			return
		}
		c.logger.Error("loading event failed", zap.String("event_id", evt.EventID.String()), zap.Error(err))
		return
	}
	if event.Status.IsTerminal() {
		// Redelivery of an event a previous attempt already settled.
		c.ack(ctx, evt)
		return
	}

	result, err := c.apply(ctx, event)
	if err != nil {
		c.fail(ctx, evt, event, err)
		return
	}

	if err := c.events.Save(ctx, event); err != nil {
		c.logger.Error("saving processed event failed", zap.String("event_id", event.ID.String()), zap.Error(err))
		return
	}
	c.ack(ctx, evt)

	c.metrics.OrdersCoordinated.WithLabelValues(event.Provider.String(), result).Inc()
	c.metrics.WebhookProcessingSeconds.WithLabelValues(event.Provider.String()).Observe(time.Since(start).Seconds())
}

// apply performs the business effect of one event and marks it on the event
// record. It returns the outcome label for metrics.
func (c *OrderCoordinator) apply(ctx context.Context, event *delivery.WebhookEvent) (string, error) {
	adapter, err := c.registry.Adapter(event.Provider)
	if err != nil {
		return "", err
	}

	draft, err := adapter.TransformOrder(event.Payload)
	if err != nil {
		// A payload that never parses will never parse on retry either.
		event.MarkDeadLettered(fmt.Sprintf("unparseable payload: %v", err))
		if serr := c.events.Save(ctx, event); serr != nil {
			return "", serr
		}
		c.logger.Warn("event dead-lettered on parse failure",
			zap.String("event_id", event.ID.String()), zap.Error(err))
		return "dead_lettered", nil
	}

	mapping, err := c.mappings.FindByExternal(ctx, event.TenantID, event.Provider, draft.ExternalOrderID)
	switch {
	case errors.Is(err, delivery.ErrMappingNotFound):
		result, cerr := c.createOrder(ctx, event, draft)
		if cerr != nil {
			return "", cerr
		}
		if result != "" {
			event.MarkProcessed(draft.ExternalOrderID)
			return result, nil
		}
		// Lost the first-writer race; re-read and fall through to update.
		mapping, err = c.mappings.FindByExternal(ctx, event.TenantID, event.Provider, draft.ExternalOrderID)
		if err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	}

	result := "noop"
	if mapping.ApplyStatus(draft.ExternalStatus, draft.State) {
		if _, err := c.orders.CreateOrUpdateOrder(ctx, event.TenantID, draft); err != nil {
			return "", err
		}
		result = "advanced"
	}
	if err := c.mappings.Update(ctx, mapping); err != nil {
		return "", err
	}

	event.MarkProcessed(draft.ExternalOrderID)
	return result, nil
}

// createOrder handles the first sight of an external order. The unique index
// on the external id decides races: the loser reports "" and the caller
// re-reads the winner's mapping.
func (c *OrderCoordinator) createOrder(ctx context.Context, event *delivery.WebhookEvent, draft delivery.CanonicalOrderDraft) (string, error) {
	internalID, err := c.orders.CreateOrUpdateOrder(ctx, event.TenantID, draft)
	if err != nil {
		return "", err
	}

	mapping, err := delivery.NewOrderMapping(event.TenantID, event.Provider, draft.ExternalOrderID, internalID, draft.State, draft.ExternalStatus)
	if err != nil {
		return "", err
	}
	if err := c.mappings.Create(ctx, mapping); err != nil {
		if errors.Is(err, delivery.ErrMappingConflict) {
			return "", nil
		}
		return "", err
	}

	c.logger.Info("order created from webhook",
		zap.String("provider", event.Provider.String()),
		zap.String("external_order_id", draft.ExternalOrderID),
		zap.String("internal_order_id", internalID.String()))
	return "created", nil
}

// fail burns one retry. Under budget the event stays unacked for redelivery;
// over budget it is dead-lettered and acked.
func (c *OrderCoordinator) fail(ctx context.Context, evt delivery.QueuedEvent, event *delivery.WebhookEvent, cause error) {
	event.RecordRetry()
	if event.RetryCount >= maxEventRetries {
		event.MarkDeadLettered(cause.Error())
		if err := c.events.Save(ctx, event); err != nil {
			c.logger.Error("dead-lettering event failed", zap.String("event_id", event.ID.String()), zap.Error(err))
			return
		}
		c.ack(ctx, evt)
		c.metrics.OrdersCoordinated.WithLabelValues(event.Provider.String(), "dead_lettered").Inc()
		c.logger.Error("event dead-lettered after retries",
			zap.String("event_id", event.ID.String()),
			zap.Int("retries", event.RetryCount),
			zap.Error(cause))
		return
	}

	if err := c.events.Save(ctx, event); err != nil {
		c.logger.Error("recording retry failed", zap.String("event_id", event.ID.String()), zap.Error(err))
	}
	c.metrics.OrdersCoordinated.WithLabelValues(event.Provider.String(), "retried").Inc()
	c.logger.Warn("event processing failed, leaving for redelivery",
		zap.String("event_id", event.ID.String()),
		zap.Int("retries", event.RetryCount),
		zap.Error(cause))
}

func (c *OrderCoordinator) ack(ctx context.Context, evt delivery.QueuedEvent) {
	if err := c.queue.Ack(ctx, evt); err != nil {
		c.logger.Error("ack failed", zap.String("event_id", evt.EventID.String()), zap.Error(err))
	}
}

// NotifyOrderStatus reports an internal state change back to every provider
// that knows the order. A per-provider circuit breaker keeps one flapping
// marketplace from stalling the rest.
func (c *OrderCoordinator) NotifyOrderStatus(ctx context.Context, tenantID, internalOrderID uuid.UUID, state delivery.CanonicalOrderState) error {
	mappings, err := c.mappings.FindByInternal(ctx, tenantID, internalOrderID)
	if err != nil {
		return err
	}
	if len(mappings) == 0 {
		return delivery.ErrMappingNotFound
	}

	configs, err := c.configs.FindByTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	var firstErr error
	for _, mapping := range mappings {
		if err := c.pushStatus(ctx, mapping, configs, state); err != nil {
			c.logger.Warn("status push failed",
				zap.String("provider", mapping.Provider.String()),
				zap.String("external_order_id", mapping.ExternalOrderID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (c *OrderCoordinator) pushStatus(ctx context.Context, mapping delivery.OrderMapping, configs []delivery.ProviderConfig, state delivery.CanonicalOrderState) error {
	adapter, err := c.registry.Adapter(mapping.Provider)
	if err != nil {
		return err
	}

	var cfg *delivery.ProviderConfig
	for i := range configs {
		if configs[i].Provider == mapping.Provider && configs[i].IsActive {
			cfg = &configs[i]
			break
		}
	}
	if cfg == nil {
		return delivery.ErrConfigNotFound
	}

	key := mapping.Provider.String()
	if !c.breaker.Allow(key) {
		return fmt.Errorf("%w: circuit open for %s", delivery.ErrTransient, mapping.Provider)
	}

	err = pushWithFreshTokens(ctx, c.retry, c.tokens, cfg.TenantID, cfg.BranchID, mapping.Provider, func(tokens delivery.TokenSet) error {
		return adapter.PushOrderStatus(ctx, tokens, mapping.ExternalOrderID, state)
	})
	if err != nil {
		c.breaker.Failure(key)
		return err
	}
	c.breaker.Success(key)
	return nil
}

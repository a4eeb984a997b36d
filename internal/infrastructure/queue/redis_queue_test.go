package queue

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
)

func TestConsumerName_StableAcrossRestarts(t *testing.T) {
	first := consumerName()
	second := consumerName()

	assert.Equal(t, first, second, "a restarted instance must resume its own pending list")
	assert.True(t, strings.HasPrefix(first, "consumer-"))
	assert.NotEmpty(t, strings.TrimPrefix(first, "consumer-"))
}

func TestRedisQueueDecode(t *testing.T) {
	q := &RedisQueue{stream: "delivery:webhooks", group: "webhook-workers", logger: zap.NewNop()}
	eventID, tenantID := uuid.New(), uuid.New()

	t.Run("well-formed entry", func(t *testing.T) {
		evt, err := q.decode(redis.XMessage{
			ID: "1690000000000-0",
			Values: map[string]any{
				fieldEventID:   eventID.String(),
				fieldTenantID:  tenantID.String(),
				fieldProvider:  "CAREEM",
				fieldPartition: "CAREEM:ord-1",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, eventID, evt.EventID)
		assert.Equal(t, tenantID, evt.TenantID)
		assert.Equal(t, delivery.ProviderCareem, evt.Provider)
		assert.Equal(t, "CAREEM:ord-1", evt.PartitionKey)
		assert.Equal(t, "1690000000000-0", evt.Receipt, "receipt carries the stream id for the ack")
	})

	t.Run("bad event id", func(t *testing.T) {
		_, err := q.decode(redis.XMessage{
			ID:     "1-0",
			Values: map[string]any{fieldEventID: "nope", fieldTenantID: tenantID.String(), fieldProvider: "CAREEM"},
		})
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := q.decode(redis.XMessage{
			ID:     "1-0",
			Values: map[string]any{fieldEventID: eventID.String(), fieldTenantID: tenantID.String(), fieldProvider: "UBEREATS"},
		})
		assert.ErrorIs(t, err, delivery.ErrInvalidProviderCode)
	})
}

package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock key only when it still holds our token, so
// a lock that expired and was re-acquired by someone else is never released
// by the original owner.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker implements Locker using SET NX with a TTL. Suitable for
// distributed deployments where multiple instances must agree on who owns
// an exclusive sync.
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisLocker creates a locker with an existing Redis client.
func NewRedisLocker(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = "delivery:lock:"
	}
	return &RedisLocker{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger.Named("lock"),
	}
}

// TryAcquire takes the lock with SETNX. The returned release function is
// safe to call after the TTL elapsed.
func (l *RedisLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, func(), error) {
	fullKey := l.keyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return false, nil, nil
	}

	release := func() {
		// Release runs outside the caller's (possibly cancelled) context.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.client.Eval(ctx, releaseScript, []string{fullKey}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock, it will expire by TTL",
				zap.String("key", key), zap.Error(err))
		}
	}
	return true, release, nil
}

var _ Locker = (*RedisLocker)(nil)

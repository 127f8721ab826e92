package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "webhook:delivery:"

// RedisDedup remembers webhook deliveries in Redis so multiple instances
// share one dedup view. Entries expire after a TTL instead of an entry cap.
type RedisDedup struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisDedup creates a Redis-backed delivery dedup store. Entries expire
// after ttl; zero means 7 days.
func NewRedisDedup(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisDedup {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisDedup{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Seen reports whether any instance marked the delivery key.
func (r *RedisDedup) Seen(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check delivery %q: %w", key, err)
	}
	return n > 0, nil
}

// Mark remembers the delivery key with the configured TTL.
func (r *RedisDedup) Mark(ctx context.Context, key string) error {
	if err := r.client.Set(ctx, redisKeyPrefix+key, 1, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark delivery %q: %w", key, err)
	}
	r.logger.Debug().Str("key", key).Msg("Delivery marked in redis")
	return nil
}

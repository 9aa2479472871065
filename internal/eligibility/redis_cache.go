package eligibility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// RedisCache is a Cache shared between replicas. Entries expire through
// Redis TTLs; generation counters do not expire.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Result, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("eligibility cache read failed", "key", key, "error", err)
		}
		return nil, false
	}

	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		slog.Warn("discarding malformed eligibility cache entry", "key", key, "error", err)
		return nil, false
	}
	return &r, true
}

func (c *RedisCache) Set(ctx context.Context, key string, r Result) {
	if c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(r)
	if err != nil {
		slog.Warn("failed to encode eligibility result", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.Warn("eligibility cache write failed", "key", key, "error", err)
	}
}

// InvalidatePrefix deletes matching keys in SCAN batches.
func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("scanning eligibility keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("deleting eligibility keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Generation reads the shared counter, so every replica agrees on which
// keys are live. A missing counter is generation zero.
func (c *RedisCache) Generation(ctx context.Context, workspaceID string) (uint64, error) {
	gen, err := c.client.Get(ctx, GenerationKey(workspaceID)).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading eligibility generation: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) Advance(ctx context.Context, workspaceID string) error {
	if err := c.client.Incr(ctx, GenerationKey(workspaceID)).Err(); err != nil {
		return fmt.Errorf("advancing eligibility generation: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

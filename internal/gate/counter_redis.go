package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisCounterTimeout = 2 * time.Second

// RedisCounter is the shared WindowCounter for multi-instance deployments.
// Counts live in per-window buckets incremented atomically; an unreachable
// Redis surfaces as an error so the pipeline can distinguish "unavailable"
// from "limit exceeded" and fail open.
type RedisCounter struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb, now: time.Now}
}

func (c *RedisCounter) IncrementAndCount(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, redisCounterTimeout)
	defer cancel()

	windowSecs := int64(window / time.Second)
	if windowSecs <= 0 {
		windowSecs = 1
	}
	nowSecs := c.now().Unix()
	bucket := nowSecs / windowSecs
	bucketKey := fmt.Sprintf("%s:%d", key, bucket)

	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, bucketKey)
	pipe.Expire(ctx, bucketKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("rate counter: %w", err)
	}

	reset := time.Duration((bucket+1)*windowSecs-nowSecs) * time.Second
	return incr.Val(), reset, nil
}

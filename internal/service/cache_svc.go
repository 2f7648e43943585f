package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/breilly1296/HealthcareProviderDB--sub002/internal/model"
)

// AggregateCacheTTL bounds how stale a cached acceptance answer can be.
const AggregateCacheTTL = 5 * time.Minute

// CacheService provides a Redis cache-aside layer for acceptance lookups.
type CacheService struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewCacheService creates a new CacheService. If redisURL is empty or the
// connection fails, cache operations become no-ops; the read path then
// always hits Postgres.
func NewCacheService(redisURL string, log zerolog.Logger) *CacheService {
	log = log.With().Str("component", "cache").Logger()

	if redisURL == "" {
		log.Info().Msg("no redis URL configured, caching disabled")
		return &CacheService{log: log}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid redis URL, caching disabled")
		return &CacheService{log: log}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis connection failed, caching disabled")
		return &CacheService{log: log}
	}

	log.Info().Msg("redis connected, caching enabled")
	return &CacheService{rdb: rdb, log: log}
}

// Client returns the underlying Redis client (for health checks and the
// distributed rate counter). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetAggregate retrieves a cached acceptance response. Returns nil if not
// cached or the cache is disabled.
func (c *CacheService) GetAggregate(ctx context.Context, tuple model.TupleKey) ([]byte, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, aggregateKey(tuple)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// SetAggregate stores an acceptance response in cache.
func (c *CacheService) SetAggregate(ctx context.Context, tuple model.TupleKey, data interface{}) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, aggregateKey(tuple), b, AggregateCacheTTL).Err()
}

// InvalidateAggregate removes a tuple from cache (called after admitted
// writes and recalculations).
func (c *CacheService) InvalidateAggregate(ctx context.Context, tuple model.TupleKey) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, aggregateKey(tuple)).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func aggregateKey(tuple model.TupleKey) string {
	return fmt.Sprintf("aggregate:%s:%s:%s", tuple.ProviderID, tuple.PlanID, tuple.LocationID)
}

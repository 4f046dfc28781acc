package funding

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisCache keeps the dedup set in Redis so suppression survives process
// restarts. It fails open: when Redis is unreachable the key is treated as
// new, since a duplicate alert is cheaper than a missed one.
type RedisCache struct {
	client  *redis.Client
	setKey  string
	ttl     time.Duration
	timeout time.Duration
	logger  zerolog.Logger
}

// RedisCacheOptions configure the Redis-backed dedup cache.
type RedisCacheOptions struct {
	Addr     string
	Password string
	DB       int
	// SetKey names the Redis set; defaults to "tf-alerter:funding:dedup".
	SetKey string
	// TTL bounds total growth server-side in place of the in-memory cap.
	TTL time.Duration
}

// NewRedisCache connects a dedup cache to Redis.
func NewRedisCache(opts RedisCacheOptions, logger zerolog.Logger) *RedisCache {
	setKey := opts.SetKey
	if setKey == "" {
		setKey = "tf-alerter:funding:dedup"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return &RedisCache{
		client:  client,
		setKey:  setKey,
		ttl:     ttl,
		timeout: 3 * time.Second,
		logger:  logger.With().Str("component", "dedup_redis").Logger(),
	}
}

// Add inserts the key into the set and refreshes its TTL.
func (c *RedisCache) Add(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	added, err := c.client.SAdd(ctx, c.setKey, key).Result()
	if err != nil {
		c.logger.Warn().Err(err).Msg("dedup add failed, treating key as new")
		return true
	}
	if err := c.client.Expire(ctx, c.setKey, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("dedup ttl refresh failed")
	}
	return added == 1
}

// Clear deletes the whole set.
func (c *RedisCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.client.Del(ctx, c.setKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("dedup clear failed")
	}
}

// Len reports the set cardinality; 0 on error.
func (c *RedisCache) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	count, err := c.client.SCard(ctx, c.setKey).Result()
	if err != nil {
		return 0
	}
	return int(count)
}

// Close releases the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/moneybuckets/internal/platform/bucket"
	"github.com/kislikjeka/moneybuckets/pkg/logger"
)

const (
	// DefaultTTL bounds how stale a cached bucket can get if an invalidation is lost
	DefaultTTL = 5 * time.Minute

	// KeyPrefix is the prefix for bucket cache keys
	KeyPrefix = "bucket:"
)

// BucketCache is a Redis-backed read-through cache of buckets. It
// implements bucket.Cache and, through Invalidate, ledger.SummaryCache.
type BucketCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewBucketCache creates a bucket cache with the default TTL
func NewBucketCache(client *redis.Client, log *logger.Logger) *BucketCache {
	return NewBucketCacheWithTTL(client, DefaultTTL, log)
}

// NewBucketCacheWithTTL creates a bucket cache with a custom TTL
func NewBucketCacheWithTTL(client *redis.Client, ttl time.Duration, log *logger.Logger) *BucketCache {
	if log == nil {
		log = logger.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &BucketCache{
		client: client,
		ttl:    ttl,
		logger: log.WithField("component", "cache"),
	}
}

func key(id uuid.UUID) string {
	return KeyPrefix + id.String()
}

// Get returns the cached bucket, or nil on a miss
func (c *BucketCache) Get(ctx context.Context, id uuid.UUID) (*bucket.Bucket, error) {
	val, err := c.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("cache miss", "bucket_id", id)
		return nil, nil
	}
	if err != nil {
		c.logger.Error("cache error", "operation", "get", "bucket_id", id, "error", err)
		return nil, fmt.Errorf("failed to get cached bucket: %w", err)
	}

	var b bucket.Bucket
	if err := json.Unmarshal(val, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached bucket: %w", err)
	}
	return &b, nil
}

// Set stores a bucket for the cache TTL
func (c *BucketCache) Set(ctx context.Context, b *bucket.Bucket) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal bucket: %w", err)
	}

	if err := c.client.Set(ctx, key(b.ID), data, c.ttl).Err(); err != nil {
		c.logger.Error("cache error", "operation", "set", "bucket_id", b.ID, "error", err)
		return fmt.Errorf("failed to cache bucket: %w", err)
	}
	return nil
}

// Invalidate drops a cached bucket
func (c *BucketCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached bucket: %w", err)
	}
	return nil
}

// Clear removes every cached bucket
func (c *BucketCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", 0).Iterator()

	pipe := c.client.Pipeline()
	count := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
		if count >= 100 {
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			pipe = c.client.Pipeline()
			count = 0
		}
	}

	if count > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}

	return iter.Err()
}

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/moneybuckets/internal/infra/redis"
	"github.com/kislikjeka/moneybuckets/internal/platform/bucket"
)

// setupTestCache uses DB 15 of a local Redis and skips when none is running
func setupTestCache(t *testing.T) *redis.BucketCache {
	client := goredis.NewClient(&goredis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Skipping test: Redis not available")
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test database: %v", err)
	}

	return redis.NewBucketCacheWithTTL(client, time.Minute, nil)
}

func TestBucketCache_SetGetInvalidate(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	units := decimal.RequireFromString("3.14159265")
	b := &bucket.Bucket{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		Name:              "ETF",
		Type:              bucket.TypeInvestment,
		ContributedAmount: decimal.RequireFromString("1000.0000000001"),
		MarketValue:       decimal.RequireFromString("1100.5"),
		TotalUnits:        &units,
	}

	got, err := c.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, b))

	got, err = c.Get(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b.Name, got.Name)
	assert.True(t, got.ContributedAmount.Equal(b.ContributedAmount), "decimals survive the round trip exactly")
	require.NotNil(t, got.TotalUnits)
	assert.True(t, got.TotalUnits.Equal(units))

	require.NoError(t, c.Invalidate(ctx, b.ID))
	got, err = c.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Invalidate(ctx, b.ID), "invalidating a missing key is fine")
}

func TestBucketCache_Clear(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	ids := make([]uuid.UUID, 0, 150)
	for range 150 {
		b := &bucket.Bucket{ID: uuid.New(), Name: "b", Type: bucket.TypeSaving}
		require.NoError(t, c.Set(ctx, b))
		ids = append(ids, b.ID)
	}

	require.NoError(t, c.Clear(ctx))

	for _, id := range ids[:5] {
		got, err := c.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

package data

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/harvester/internal/testutil"
)

func TestSeenHashCache_RememberAndSeen(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	cache := NewSeenHashCache(client, time.Minute)
	ctx := context.Background()

	seen, err := cache.Seen(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, cache.Remember(ctx, "abc", "", "def"))
	require.NoError(t, cache.Remember(ctx, "abc"), "remembering twice is not an error")

	for _, h := range []string{"abc", "def"} {
		seen, err = cache.Seen(ctx, h)
		require.NoError(t, err)
		assert.True(t, seen, h)
	}

	ttl, err := client.TTL(ctx, seenHashKey("abc")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, cache.Remember(ctx))
	require.NoError(t, cache.Health(ctx))

	_, err = cache.Seen(ctx, "")
	require.Error(t, err)
}

func TestNewSeenHashCacheDefaultsTTL(t *testing.T) {
	cache := NewSeenHashCache(nil, 0)
	assert.Equal(t, DefaultSeenHashTTL, cache.ttl)
}

func TestSeenHashCache_Clear(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	cache := NewSeenHashCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Remember(ctx, "h1", "h2", "h3"))
	require.NoError(t, client.Set(ctx, "unrelated", "x", time.Minute).Err())

	n, err := cache.Clear(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	seen, err := cache.Seen(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, seen, "dry run keeps keys")

	n, err = cache.Clear(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	seen, err = cache.Seen(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, seen)

	exists, err := client.Exists(ctx, "unrelated").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestSeenHashCache_ClearDeletesInBatches(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	cache := NewSeenHashCache(client, time.Minute)
	ctx := context.Background()

	hashes := make([]string, 2*clearBatchSize+17)
	for i := range hashes {
		hashes[i] = fmt.Sprintf("batch-%03d", i)
	}
	require.NoError(t, cache.Remember(ctx, hashes...))

	n, err := cache.Clear(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, len(hashes), n)

	left, err := cache.Clear(ctx, true)
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestSeenHashCache_ClearAcrossClusterSlots(t *testing.T) {
	client := testutil.SetupTestRedisCluster(t)
	cache := NewSeenHashCache(client, time.Minute)
	ctx := context.Background()

	hashes := make([]string, 50)
	for i := range hashes {
		hashes[i] = fmt.Sprintf("slot-%02d", i)
	}
	for _, h := range hashes {
		require.NoError(t, cache.Remember(ctx, h))
	}

	n, err := cache.Clear(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, len(hashes), n, "dry run counts keys on every master")

	n, err = cache.Clear(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, len(hashes), n)
	for _, h := range hashes {
		seen, seenErr := cache.Seen(ctx, h)
		require.NoError(t, seenErr)
		assert.False(t, seen, h)
	}
}

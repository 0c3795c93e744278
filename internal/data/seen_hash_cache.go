package data

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSeenHashTTL bounds how long a remembered identity hash short-circuits the database check.
const DefaultSeenHashTTL = 7 * 24 * time.Hour

const seenHashKeyPrefix = "harvester:seen:"

// SeenHashCache implements core.SeenHashCache on Redis.
type SeenHashCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSeenHashCache creates a SeenHashCache. A non-positive ttl selects DefaultSeenHashTTL.
func NewSeenHashCache(client redis.UniversalClient, ttl time.Duration) *SeenHashCache {
	if ttl <= 0 {
		ttl = DefaultSeenHashTTL
	}
	return &SeenHashCache{client: client, ttl: ttl}
}

func seenHashKey(hash string) string {
	return seenHashKeyPrefix + hash
}

// Seen reports whether hash was remembered.
func (c *SeenHashCache) Seen(ctx context.Context, hash string) (bool, error) {
	if hash == "" {
		return false, errors.New("hash cannot be empty")
	}
	n, err := c.client.Exists(ctx, seenHashKey(hash)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Remember records hashes with the configured TTL in one pipeline round trip.
func (c *SeenHashCache) Remember(ctx context.Context, hashes ...string) error {
	if len(hashes) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, h := range hashes {
			if h == "" {
				continue
			}
			pipe.SetArgs(ctx, seenHashKey(h), "1", redis.SetArgs{Mode: "NX", TTL: c.ttl})
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

// Health pings Redis.
func (c *SeenHashCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Clear deletes every remembered hash and returns how many keys matched.
// With dryRun set the keys are only counted. On a cluster every master is
// scanned, and keys are deleted one per command so no DEL spans hash slots.
func (c *SeenHashCache) Clear(ctx context.Context, dryRun bool) (int, error) {
	keys, err := c.scanSeenKeys(ctx)
	if err != nil {
		return 0, err
	}
	if dryRun {
		return len(keys), nil
	}
	for start := 0; start < len(keys); start += clearBatchSize {
		batch := keys[start:min(start+clearBatchSize, len(keys))]
		_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, k := range batch {
				pipe.Del(ctx, k)
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("delete redis keys: %w", err)
		}
	}
	return len(keys), nil
}

const clearBatchSize = 100

func (c *SeenHashCache) scanSeenKeys(ctx context.Context) ([]string, error) {
	cluster, ok := c.client.(*redis.ClusterClient)
	if !ok {
		return scanKeys(ctx, c.client, seenHashKeyPrefix+"*")
	}

	var (
		mu   sync.Mutex
		keys []string
	)
	err := cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
		nodeKeys, err := scanKeys(ctx, node, seenHashKeyPrefix+"*")
		if err != nil {
			return err
		}
		mu.Lock()
		keys = append(keys, nodeKeys...)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func scanKeys(ctx context.Context, client redis.Cmdable, match string) ([]string, error) {
	iter := client.Scan(ctx, 0, match, 1000).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan redis: %w", err)
	}
	return keys, nil
}

package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// InsightCache keeps generated insight payloads in Redis under insight:{key}.
// Concurrent misses for one key share a single load, detached from the
// cancellation of whichever caller started it.
type InsightCache struct {
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewInsightCache(client *redis.Client, ttl time.Duration) *InsightCache {
	return &InsightCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *InsightCache) Fetch(ctx context.Context, key string, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	cacheKey := c.key(key)
	if raw, err := c.client.Get(ctx, cacheKey).Bytes(); err == nil {
		return raw, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(key, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if raw, err := c.client.Get(loadCtx, cacheKey).Bytes(); err == nil {
			return raw, nil
		}

		raw, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		_ = c.client.Set(loadCtx, cacheKey, raw, c.ttlWithJitter()).Err()
		return raw, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *InsightCache) key(key string) string {
	return "insight:" + key
}

func (c *InsightCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

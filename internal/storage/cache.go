package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/codecraft-ai/backend/internal/shared/types"
)

// sessionTTL bounds how stale a cached session read can be.
const sessionTTL = 5 * time.Minute

// Cache is the Redis layer in front of session reads.
type Cache struct {
	client *redis.Client
}

// NewCache connects to the Redis URL and pings it before returning.
func NewCache(ctx context.Context, url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Cache{client: client}, nil
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

func sessionKey(id string) string {
	return "session:" + id
}

// GetSession returns a cached session, or ok=false on a miss. Cache errors
// count as misses: the caller falls through to Mongo either way.
func (c *Cache) GetSession(ctx context.Context, id string) (*types.SessionRecord, bool) {
	data, err := c.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var rec types.SessionRecord
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

// SetSession caches a session for the standard TTL.
func (c *Cache) SetSession(ctx context.Context, rec *types.SessionRecord) {
	data, err := sonic.Marshal(rec)
	if err != nil {
		return
	}
	c.client.Set(ctx, sessionKey(rec.ID), data, sessionTTL)
}

// Invalidate drops a cached session. Called on every save so the cache
// never outlives the record it shadows.
func (c *Cache) Invalidate(ctx context.Context, id string) {
	c.client.Del(ctx, sessionKey(id))
}

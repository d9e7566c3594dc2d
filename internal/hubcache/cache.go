// Package hubcache is the tenant+agent-scoped ephemeral store (C4): recent
// messages, individual memory bundles, and agent identity, backed by Redis.
// Every key is built through Key so INV-C (every cache key begins with
// "{tenantId}:") can never be violated by a call site forgetting the
// prefix.
package hubcache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Kind names the category of cached value, the third segment of a
// composite key.
type Kind string

const (
	KindInbox    Kind = "inbox"
	KindBundle   Kind = "bundle"
	KindIdentity Kind = "agent"
)

// TTLs for each cached kind, per spec.md §9's "inbox: short TTL" guidance.
const (
	InboxTTL  = 30 * time.Second
	BundleTTL = 2 * time.Minute
)

// Cache wraps a redis.Client. A nil *Cache (constructed when REDIS_URL is
// unset) is valid and behaves as an always-miss cache, so callers never
// need a separate "is caching enabled" branch.
type Cache struct {
	client *redis.Client
	log    zerolog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New constructs a Cache. client may be nil to disable caching entirely.
func New(client *redis.Client, log zerolog.Logger) *Cache {
	return &Cache{client: client, log: log.With().Str("component", "hubcache").Logger()}
}

// Key builds the composite cache key "{tenantId}:{agentId}:{kind}" — the
// single place this format is assembled, per the composite-key design note.
func Key(tenantID, agentID string, kind Kind) string {
	return tenantID + ":" + agentID + ":" + string(kind)
}

// Get reads a cached JSON value into dest. A miss (including a disabled
// cache, a Redis connectivity error, or a bad payload) returns found=false
// and never an error — cache reads are advisory, per the concurrency model.
func (c *Cache) Get(ctx context.Context, key string, dest any) (found bool) {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache read failed, falling through to store")
		}
		c.misses.Add(1)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache payload corrupt, falling through to store")
		c.misses.Add(1)
		return false
	}
	c.hits.Add(1)
	return true
}

// HitRatio returns hits/(hits+misses) observed since process start, or 0
// when nothing has been read yet. Surfaced on GET /system/status; a nil
// Cache always reports 0, consistent with it being an always-miss cache.
func (c *Cache) HitRatio() float64 {
	if c == nil {
		return 0
	}
	hits, misses := c.hits.Load(), c.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Set writes a value with ttl. Failures are logged and swallowed — a cache
// write is never allowed to fail a request.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache value not serializable")
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// InvalidateTenant evicts every cache entry belonging to a tenant. The tool
// handlers invalidate per agent via InvalidateAgent; nothing outside the
// tests calls this. Safe by construction: every key begins
// with "{tenantId}:", so a prefix SCAN can never touch another tenant's
// entries (INV-C).
func (c *Cache) InvalidateTenant(ctx context.Context, tenantID string) {
	if c == nil || c.client == nil {
		return
	}
	c.invalidatePrefix(ctx, tenantID+":*")
}

// InvalidateAgent evicts every cached kind for one agent within a tenant.
func (c *Cache) InvalidateAgent(ctx context.Context, tenantID, agentID string) {
	if c == nil || c.client == nil {
		return
	}
	c.invalidatePrefix(ctx, tenantID+":"+agentID+":*")
}

func (c *Cache) invalidatePrefix(ctx context.Context, pattern string) {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn().Err(err).Str("pattern", pattern).Msg("cache scan failed during invalidation")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Str("pattern", pattern).Msg("cache delete failed during invalidation")
	}
}

package annotation

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/genome"
	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
)

const keyPrefix = "anno:"

// KV is the subset of the Redis client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Cache memoizes lookups of next in Redis. Empty results are cached, errors
// are not. Concurrent misses for the same key share one backend call.
type Cache struct {
	next    Annotator
	kv      KV
	ttl     time.Duration
	prefix  string
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewCache(next Annotator, kv KV, release genome.Release, ttl time.Duration, m *metrics.Metrics) *Cache {
	return &Cache{
		next:    next,
		kv:      kv,
		ttl:     ttl,
		prefix:  keyPrefix + release.String() + ":",
		metrics: m,
		logger:  slog.Default().With("component", "annotation-cache"),
	}
}

func (c *Cache) ClinVar(ctx context.Context, v *variant.Candidate) ([]variant.Significance, error) {
	return cached(ctx, c, KindClinVar, v, func() ([]variant.Significance, error) {
		return c.next.ClinVar(ctx, v)
	})
}

func (c *Cache) Consequences(ctx context.Context, v *variant.Candidate) ([]variant.Consequence, error) {
	return cached(ctx, c, KindConsequence, v, func() ([]variant.Consequence, error) {
		return c.next.Consequences(ctx, v)
	})
}

func cached[T any](ctx context.Context, c *Cache, kind string, v *variant.Candidate, compute func() ([]T, error)) ([]T, error) {
	key := c.buildKey(kind, v)
	if out, ok := get[T](ctx, c, key); ok {
		return out, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		if out, ok := get[T](ctx, c, key); ok {
			return out, nil
		}
		out, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]T), nil
}

func get[T any](ctx context.Context, c *Cache, key string) ([]T, bool) {
	data, found, err := c.kv.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if !found {
		c.miss()
		return nil, false
	}
	var out []T
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheHit()
	return out, true
}

func (c *Cache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.kv.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *Cache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMiss()
}

// Invalidate drops every cached lookup of the cache's release.
func (c *Cache) Invalidate(ctx context.Context) error {
	deleted, err := c.kv.FlushByPattern(ctx, c.prefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating annotation cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) buildKey(kind string, v *variant.Candidate) string {
	hash := sha256.Sum256([]byte(v.Key()))
	return fmt.Sprintf("%s%s:%x", c.prefix, kind, hash[:16])
}

// Package redis wraps go-redis/v9 for the annotation cache: string lookups
// with a TTL, bulk invalidation by key pattern and a health probe.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
)

const (
	dialProbeTimeout = 5 * time.Second
	scanCount        = 500
	unlinkBatch      = 256
)

type Client struct {
	rdb  *redis.Client
	addr string
}

// NewClient connects to cfg.Addr and fails unless a PING answers within a
// few seconds.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	c := &Client{rdb: rdb, addr: cfg.Addr}
	ctx, cancel := context.WithTimeout(context.Background(), dialProbeTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return c, nil
}

// Get returns the value stored at key. A missing key is not an error; ok
// reports whether it was present.
func (c *Client) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	value, err = c.rdb.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value at key. A zero ttl keeps the key forever.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// FlushByPattern unlinks every key matching the glob pattern and returns how
// many were removed. Keys are collected with SCAN and unlinked in batches.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var (
		deleted int64
		batch   = make([]string, 0, unlinkBatch)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.rdb.Unlink(ctx, batch...).Result()
		deleted += n
		batch = batch[:0]
		return err
	}

	iter := c.rdb.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == unlinkBatch {
			if err := flush(); err != nil {
				return deleted, fmt.Errorf("unlinking keys of %s: %w", pattern, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning %s: %w", pattern, err)
	}
	if err := flush(); err != nil {
		return deleted, fmt.Errorf("unlinking keys of %s: %w", pattern, err)
	}
	return deleted, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.addr, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

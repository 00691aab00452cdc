// Package cache holds the Redis-backed account snapshots and token buckets.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis connection pool.
type Options struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

// DefaultOptions returns pool settings sized for a single API instance.
func DefaultOptions(url string) Options {
	return Options{
		URL:          url,
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	}
}

// Cache provides Redis cache access methods.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*Cache, error) {
	redisOpts, err := clientOptions(opts)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// clientOptions merges pool settings over the parsed URL.
// Zero values keep the DefaultOptions value.
func clientOptions(opts Options) (*redis.Options, error) {
	ro, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	def := DefaultOptions(opts.URL)
	ro.PoolSize = pick(opts.PoolSize, def.PoolSize)
	ro.MinIdleConns = pick(opts.MinIdleConns, def.MinIdleConns)
	ro.PoolTimeout = pick(opts.PoolTimeout, def.PoolTimeout)
	ro.ConnMaxIdleTime = pick(opts.IdleTimeout, def.IdleTimeout)

	if ro.MinIdleConns > ro.PoolSize {
		ro.MinIdleConns = ro.PoolSize
	}
	return ro, nil
}

func pick[T int | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client, shared with the activity log
// publisher and worker.
func (c *Cache) Client() *redis.Client {
	return c.client
}

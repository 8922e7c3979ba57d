// Package cache keeps the per-category maximum price used to normalize
// prices before scoring.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/endurank/internal/domain/model"
	"github.com/okian/endurank/pkg/metrics"
)

const (
	defaultTTL    = 10 * time.Minute
	defaultPrefix = "endurank:maxprice"
)

// PriceCache stores the highest price seen in a comparison category.
type PriceCache interface {
	// MaxPrice returns the cached maximum. Returns ErrMiss when absent.
	MaxPrice(ctx context.Context, kind model.Kind, category string) (float64, error)
	SetMaxPrice(ctx context.Context, kind model.Kind, category string, price float64) error
	// Invalidate drops the cached maximum so the next read recomputes it.
	Invalidate(ctx context.Context, kind model.Kind, category string) error
}

// RedisCache implements PriceCache on redis with a fixed TTL.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client redis.UniversalClient, opts ...Option) *RedisCache {
	c := &RedisCache{client: client, ttl: defaultTTL, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(kind model.Kind, category string) string {
	return c.prefix + ":" + string(kind) + ":" + category
}

// MaxPrice implements PriceCache.
func (c *RedisCache) MaxPrice(ctx context.Context, kind model.Kind, category string) (float64, error) {
	v, err := c.client.Get(ctx, c.key(kind, category)).Float64()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup("miss")
		return 0, ErrMiss
	}
	if err != nil {
		metrics.RecordCacheLookup("error")
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	metrics.RecordCacheLookup("hit")
	return v, nil
}

// SetMaxPrice implements PriceCache.
func (c *RedisCache) SetMaxPrice(ctx context.Context, kind model.Kind, category string, price float64) error {
	if err := c.client.Set(ctx, c.key(kind, category), price, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Invalidate implements PriceCache.
func (c *RedisCache) Invalidate(ctx context.Context, kind model.Kind, category string) error {
	if err := c.client.Del(ctx, c.key(kind, category)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

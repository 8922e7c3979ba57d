package cache

import "time"

// Option applies a configuration option to the RedisCache.
type Option func(*RedisCache)

// WithTTL sets how long a cached maximum lives. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces every key.
func WithKeyPrefix(prefix string) Option {
	return func(c *RedisCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

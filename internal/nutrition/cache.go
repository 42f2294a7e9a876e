package nutrition

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrCacheMiss is returned by Cache.Get when nothing is stored for a key.
var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedFetcher serves repeat lookups from a Cache. Cache failures are
// logged and otherwise ignored; only successful lookups are stored.
type CachedFetcher struct {
	next  Fetcher
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCachedFetcher(next Fetcher, cache Cache, ttl time.Duration, log zerolog.Logger) *CachedFetcher {
	return &CachedFetcher{next: next, cache: cache, ttl: ttl, log: log}
}

func (f *CachedFetcher) Fetch(ctx context.Context, label string) (string, error) {
	key := cacheKey(label)

	text, err := f.cache.Get(ctx, key)
	switch {
	case err == nil:
		return text, nil
	case !errors.Is(err, ErrCacheMiss):
		f.log.Warn().Err(err).Str("key", key).Msg("nutrition cache read failed")
	}

	text, err = f.next.Fetch(ctx, label)
	if err != nil {
		return "", err
	}

	if err := f.cache.Set(ctx, key, text, f.ttl); err != nil {
		f.log.Warn().Err(err).Str("key", key).Msg("nutrition cache write failed")
	}
	return text, nil
}

func cacheKey(label string) string {
	return "nutrition:" + strings.ToLower(strings.TrimSpace(label))
}

type RedisOptions struct {
	Address  string
	Password string
	DB       int
}

// RedisCache stores lookups in Redis.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(opts RedisOptions) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Address,
			Password: opts.Password,
			DB:       opts.DB,
		}),
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	return v, err
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var (
	_ Fetcher = (*CachedFetcher)(nil)
	_ Cache   = (*RedisCache)(nil)
)

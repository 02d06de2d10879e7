package cache

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/miahui/internal/config"
	"github.com/oggyb/miahui/internal/prefs"
)

// RedisCache keeps preferences as plain string keys under a shared prefix.
// It satisfies prefs.Backend.
type RedisCache struct {
	Client *redis.Client
	prefix string
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts), prefix: cfg.Store.KeyPrefix}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// KeyFor generates the Redis key for a preference.
func (c *RedisCache) KeyFor(key string) string {
	return c.prefix + key
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.Client.Get(ctx, c.KeyFor(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", prefs.ErrNotFound
	}
	return val, err
}

// Set stores the value without expiry; preferences live until cleared.
func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	return c.Client.Set(ctx, c.KeyFor(key), value, 0).Err()
}

// Clear deletes every key under the prefix. Other data in the same Redis DB is untouched.
func (c *RedisCache) Clear(ctx context.Context) error {
	keys, err := c.scan(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}

// Keys lists stored preference keys without the prefix.
func (c *RedisCache) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, c.prefix))
	}
	sort.Strings(out)
	return out, nil
}

func (c *RedisCache) scan(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := c.Client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

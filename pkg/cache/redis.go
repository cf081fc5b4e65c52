package cache

import (
	"context"
	"fmt"
	"time"

	"vmxio.com/itpec-quiz/config"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key this service writes so a shared redis
// instance can host other apps.
const KeyPrefix = "itpec-quiz:"

// RedisClient is the small key/TTL store used for token revocations.
type RedisClient struct {
	client *redis.Client
	prefix string
}

func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client, prefix: KeyPrefix}, nil
}

func (c *RedisClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Key returns the namespaced form of key.
func (c *RedisClient) Key(key string) string {
	return namespaced(c.prefix, key)
}

func namespaced(prefix, key string) string {
	return prefix + key
}

// Set stores value under key for ttl. A non-positive ttl is rejected so
// revocations never become permanent by accident.
func (c *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("redis set %s: ttl must be positive, got %s", key, ttl)
	}
	return c.client.Set(ctx, c.Key(key), value, ttl).Err()
}

func (c *RedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.Key(k)
	}
	return c.client.Exists(ctx, full...).Result()
}

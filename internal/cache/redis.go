package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "puddle:"

const DefaultTTL = 5 * time.Minute

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(redisAddr string, db int, ttl time.Duration) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   db,
	})

	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

// PiggyBankDetailKey is the key of the cached detail view of a piggy bank.
func PiggyBankDetailKey(piggyBankID string) string {
	return keyPrefix + "piggy_bank:" + piggyBankID + ":detail"
}

// Set stores a key-value pair with an expiration time
func (c *Cache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value by key. A miss is reported as found == false.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

// GetJSON decodes the cached value at key into dst.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	value, found, err := c.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}

	if err := json.Unmarshal([]byte(value), dst); err != nil {
		return false, err
	}

	return true, nil
}

// SetJSON stores v at key using the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	js, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return c.Set(ctx, key, string(js), c.ttl)
}

// Delete removes keys from the cache
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

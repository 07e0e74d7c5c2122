package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"tillledger/internal/domain"
)

const closingKeyPrefix = "till:closing:"

type RedisClosingCache struct {
	client *redis.Client
}

func NewRedisClosingCache(addr string, password string, db int) *RedisClosingCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisClosingCache{client: client}
}

// Client exposes the connection so the rollover lock can share it.
func (c *RedisClosingCache) Client() *redis.Client {
	return c.client
}

func (c *RedisClosingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisClosingCache) Close() error {
	return c.client.Close()
}

func (c *RedisClosingCache) Get(ctx context.Context, date domain.Date) (*domain.CashClosing, bool, error) {
	val, err := c.client.Get(ctx, closingKeyPrefix+date.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var closing domain.CashClosing
	if err := json.Unmarshal(val, &closing); err != nil {
		return nil, false, err
	}
	return &closing, true, nil
}

func (c *RedisClosingCache) Set(ctx context.Context, closing *domain.CashClosing, ttl time.Duration) error {
	if closing == nil {
		return nil
	}
	payload, err := json.Marshal(closing)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, closingKeyPrefix+closing.Date.String(), payload, ttl).Err()
}

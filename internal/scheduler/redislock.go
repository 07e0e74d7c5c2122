package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
)

const DefaultLockKey = "till:rollover"

// RedisLocker keeps two processes sharing one database from auto-closing
// the same day at once.
type RedisLocker struct {
	client *redislock.Client
	key    string
	ttl    time.Duration
}

func NewRedisLocker(rdb redislock.RedisClient, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultLockKey
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: redislock.New(rdb), key: key, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context) (func(), bool, error) {
	lock, err := l.client.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return func() {
		_ = lock.Release(context.Background())
	}, true, nil
}

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, val []byte) error {
	return c.rdb.Set(ctx, c.prefix+key, val, c.ttl).Err()
}

// Incr bumps an integer counter and refreshes its expiry in one round trip.
func (c *Redis) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, c.prefix+key)
		pipe.Expire(ctx, c.prefix+key, ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *Redis) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+key).Err()
}

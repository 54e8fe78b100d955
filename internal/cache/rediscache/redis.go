package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ARF-DEV/ytqueue_bot/internal/cache"
	"github.com/redis/go-redis/v9"
)

var _ cache.Cache = (*RedisCache)(nil)

type RedisCache struct {
	client *redis.Client
	prefix string
}

// CreateCache returns a redis backed cache. Every key is stored under prefix.
func CreateCache(opt *redis.Options, prefix string) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(opt),
		prefix: prefix,
	}
}

func (rc *RedisCache) key(k string) string {
	return rc.prefix + k
}

func (rc *RedisCache) GetAndParse(ctx context.Context, key string, dst interface{}) error {
	res, err := rc.client.Get(ctx, rc.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cache.ErrCacheMiss
	}
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return fmt.Errorf("redis key (%s)'s value len is 0", key)
	}
	if err = json.Unmarshal(res, dst); err != nil {
		return err
	}

	return nil
}

// SetExp stores value with the given lifetime, zero meaning no expiry. value
// must be encodable by go-redis, so structs implement encoding.BinaryMarshaler.
func (rc *RedisCache) SetExp(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	return rc.client.Set(ctx, rc.key(key), value, exp).Err()
}

func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

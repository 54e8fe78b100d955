package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by GetAndParse when the key does not exist or has expired.
var ErrCacheMiss = errors.New("cache miss")

type (
	Cache interface {
		GetAndParse(ctx context.Context, key string, dst interface{}) error
		SetExp(ctx context.Context, key string, value interface{}, exp time.Duration) error
		Ping(ctx context.Context) error
		Close() error
	}
)

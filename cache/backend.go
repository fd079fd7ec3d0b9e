package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by backends for absent keys.
var ErrMiss = errors.New("cache: miss")

// Backend is the minimal key-value contract the resilient cache needs. Any
// store exposing these primitives can sit behind it.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// MGet returns one entry per key; nil marks a miss.
	MGet(ctx context.Context, keys ...string) ([]*string, error)
	MSet(ctx context.Context, pairs map[string]string, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)
	// TTL reports the remaining lifetime, -2 for a missing key and -1 for a
	// key without expiry, mirroring Redis semantics.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Ping(ctx context.Context) error
}

package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gitgauge/gitgauge/cache"
)

// Store adapts a go-redis client to the cache.Backend contract.
type Store struct {
	cli *redis.Client
}

func NewStore(cli *redis.Client) *Store {
	return &Store{cli: cli}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.cli.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", cache.ErrMiss
	}
	return v, err
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.cli.Set(ctx, key, value, ttl).Err()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.cli.Del(ctx, keys...).Err()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.cli.Exists(ctx, key).Result()
	return n > 0, err
}

func (s *Store) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	raw, err := s.cli.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*string, len(keys))
	for i, v := range raw {
		if str, ok := v.(string); ok {
			val := str
			out[i] = &val
		}
	}
	return out, nil
}

// MSet pipelines per-key SETs so the shared TTL applies to every entry;
// Redis MSET itself cannot carry an expiry.
func (s *Store) MSet(ctx context.Context, pairs map[string]string, ttl time.Duration) error {
	pipe := s.cli.TxPipeline()
	for k, v := range pairs {
		pipe.Set(ctx, k, v, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return s.cli.IncrBy(ctx, key, delta).Result()
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.cli.TTL(ctx, key).Result()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.cli.Ping(ctx).Err()
}

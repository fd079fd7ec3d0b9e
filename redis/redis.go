package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectToRedis dials a Redis backend and verifies it with a bounded ping.
func ConnectToRedis(addr, password string, db int, connTimeout time.Duration) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := ping(rdb, connTimeout); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// ConnectToRedisURL dials a Redis backend from a redis:// URL.
func ConnectToRedisURL(rawURL string, connTimeout time.Duration) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	if err := ping(rdb, connTimeout); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func ping(rdb *redis.Client, connTimeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

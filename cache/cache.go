package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gitgauge/gitgauge/logger"
)

const (
	namespace = "gitgauge"

	// errorLogInterval throttles backend failure logging so an outage does
	// not produce one log line per failed operation.
	errorLogInterval = time.Minute
)

// Cache is a best-effort TTL accelerator over a Backend. Every operation is
// non-throwing: any backend failure flips the cache into a permanent
// always-miss mode for the process lifetime, until Reconnect is called.
// Correctness never depends on it.
type Cache struct {
	backend   Backend
	subsystem string

	degraded  atomic.Bool
	lastLogNS atomic.Int64
}

func New(backend Backend, subsystem string) *Cache {
	return &Cache{backend: backend, subsystem: subsystem}
}

// Key returns the namespaced form of key used against the backend.
func (c *Cache) Key(key string) string {
	return namespace + ":" + c.subsystem + ":" + key
}

// Degraded reports whether the cache has downgraded to always-miss.
func (c *Cache) Degraded() bool { return c.degraded.Load() }

// Reconnect pings the backend and re-enables it on success.
func (c *Cache) Reconnect(ctx context.Context) error {
	if err := c.backend.Ping(ctx); err != nil {
		return err
	}
	c.degraded.Store(false)
	return nil
}

func (c *Cache) fail(op string, err error) {
	c.degraded.Store(true)
	now := time.Now().UnixNano()
	last := c.lastLogNS.Load()
	if now-last < int64(errorLogInterval) || !c.lastLogNS.CompareAndSwap(last, now) {
		return
	}
	logger.Warn("cache backend unavailable, degrading to miss",
		zap.String("subsystem", c.subsystem),
		zap.String("op", op),
		zap.Error(err))
}

// GetRaw returns the serialized value for key, or false on miss, expiry,
// or backend unavailability.
func (c *Cache) GetRaw(ctx context.Context, key string) (string, bool) {
	if c.degraded.Load() {
		return "", false
	}
	v, err := c.backend.Get(ctx, c.Key(key))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.fail("get", err)
		}
		return "", false
	}
	return v, true
}

// Set stores value as JSON under key with the given TTL. Returns false when
// the value could not be stored.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if c.degraded.Load() {
		return false
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := c.backend.Set(ctx, c.Key(key), string(raw), ttl); err != nil {
		c.fail("set", err)
		return false
	}
	return true
}

// Del invalidates keys. A no-op when the backend is unavailable.
func (c *Cache) Del(ctx context.Context, keys ...string) {
	if c.degraded.Load() {
		return
	}
	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = c.Key(k)
	}
	if err := c.backend.Del(ctx, namespaced...); err != nil {
		c.fail("del", err)
	}
}

// Exists reports key presence; false when the backend is unavailable.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	if c.degraded.Load() {
		return false
	}
	ok, err := c.backend.Exists(ctx, c.Key(key))
	if err != nil {
		c.fail("exists", err)
		return false
	}
	return ok
}

// Increment atomically adds delta to a counter key. Returns 0 when the
// backend is unavailable.
func (c *Cache) Increment(ctx context.Context, key string, delta int64) int64 {
	if c.degraded.Load() {
		return 0
	}
	n, err := c.backend.IncrBy(ctx, c.Key(key), delta)
	if err != nil {
		c.fail("incr", err)
		return 0
	}
	return n
}

// GetTTL returns the remaining lifetime of key, or 0 on miss or backend
// unavailability.
func (c *Cache) GetTTL(ctx context.Context, key string) time.Duration {
	if c.degraded.Load() {
		return 0
	}
	ttl, err := c.backend.TTL(ctx, c.Key(key))
	if err != nil {
		c.fail("ttl", err)
		return 0
	}
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Get unmarshals the cached value for key into T.
func Get[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var out T
	raw, ok := c.GetRaw(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.Warn("cache unmarshal failed, treating as miss", zap.String("key", key), zap.Error(err))
		return out, false
	}
	return out, true
}

// GetOrSet returns the cached value for key, or invokes producer, stores its
// result under ttl, and returns it. Producer errors propagate unmodified.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, producer func(context.Context) (T, error)) (T, error) {
	if v, ok := Get[T](ctx, c, key); ok {
		return v, nil
	}
	v, err := producer(ctx)
	if err != nil {
		return v, err
	}
	c.Set(ctx, key, v, ttl)
	return v, nil
}

// MGet unmarshals the cached values of keys into T; nil entries are misses.
// On backend unavailability every entry is a miss.
func MGet[T any](ctx context.Context, c *Cache, keys ...string) []*T {
	out := make([]*T, len(keys))
	if c.degraded.Load() {
		return out
	}
	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = c.Key(k)
	}
	raws, err := c.backend.MGet(ctx, namespaced...)
	if err != nil {
		c.fail("mget", err)
		return out
	}
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(*raw), &v); err != nil {
			continue
		}
		out[i] = &v
	}
	return out
}

// MSet stores each value as JSON under a shared TTL.
func MSet[T any](ctx context.Context, c *Cache, pairs map[string]T, ttl time.Duration) bool {
	if c.degraded.Load() {
		return false
	}
	raw := make(map[string]string, len(pairs))
	for k, v := range pairs {
		b, err := json.Marshal(v)
		if err != nil {
			logger.Warn("cache marshal failed", zap.String("key", k), zap.Error(err))
			return false
		}
		raw[c.Key(k)] = string(b)
	}
	if err := c.backend.MSet(ctx, raw, ttl); err != nil {
		c.fail("mset", err)
		return false
	}
	return true
}

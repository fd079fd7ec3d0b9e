package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitgauge/gitgauge/logger"
)

func init() {
	_ = logger.Initialize("error")
}

type payload struct {
	Name   string         `json:"name"`
	Scores map[string]int `json:"scores"`
	Tags   []string       `json:"tags"`
}

// brokenBackend simulates a backend that is down: every operation fails.
type brokenBackend struct {
	calls int
}

var errDown = errors.New("connection refused")

func (b *brokenBackend) Get(context.Context, string) (string, error) { b.calls++; return "", errDown }
func (b *brokenBackend) Set(context.Context, string, string, time.Duration) error {
	b.calls++
	return errDown
}
func (b *brokenBackend) Del(context.Context, ...string) error           { b.calls++; return errDown }
func (b *brokenBackend) Exists(context.Context, string) (bool, error)   { b.calls++; return false, errDown }
func (b *brokenBackend) MGet(context.Context, ...string) ([]*string, error) {
	b.calls++
	return nil, errDown
}
func (b *brokenBackend) MSet(context.Context, map[string]string, time.Duration) error {
	b.calls++
	return errDown
}
func (b *brokenBackend) IncrBy(context.Context, string, int64) (int64, error) {
	b.calls++
	return 0, errDown
}
func (b *brokenBackend) TTL(context.Context, string) (time.Duration, error) {
	b.calls++
	return 0, errDown
}
func (b *brokenBackend) Ping(context.Context) error { return errDown }

func newMemoryCache(t *testing.T) *Cache {
	t.Helper()
	backend, err := NewMemory(64)
	require.NoError(t, err)
	return New(backend, "test")
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newMemoryCache(t)

	in := payload{
		Name:   "gauge",
		Scores: map[string]int{"quality": 54, "docs": 50},
		Tags:   []string{"go", "cli"},
	}
	assert.True(t, c.Set(ctx, "k", in, time.Minute))

	out, ok := Get[payload](ctx, c, "k")
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestGetMiss(t *testing.T) {
	c := newMemoryCache(t)
	_, ok := Get[payload](context.Background(), c, "absent")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	c := newMemoryCache(t)

	c.Set(ctx, "k", "v", 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	_, ok := Get[string](ctx, c, "k")
	assert.False(t, ok)
}

func TestUnavailableBackendNeverThrows(t *testing.T) {
	ctx := context.Background()
	backend := &brokenBackend{}
	c := New(backend, "test")

	_, ok := c.GetRaw(ctx, "k")
	assert.False(t, ok)
	assert.False(t, c.Set(ctx, "k", "v", time.Minute))
	assert.False(t, c.Exists(ctx, "k"))
	assert.Zero(t, c.Increment(ctx, "n", 1))
	assert.Zero(t, c.GetTTL(ctx, "k"))
	c.Del(ctx, "k")

	for _, v := range MGet[string](ctx, c, "a", "b") {
		assert.Nil(t, v)
	}
}

func TestDegradedModeStopsHittingBackend(t *testing.T) {
	ctx := context.Background()
	backend := &brokenBackend{}
	c := New(backend, "test")

	_, _ = c.GetRaw(ctx, "k")
	require.True(t, c.Degraded())
	after := backend.calls

	// Degraded mode short-circuits; the dead backend sees no more traffic.
	_, _ = c.GetRaw(ctx, "k")
	c.Set(ctx, "k", "v", time.Minute)
	c.Exists(ctx, "k")
	assert.Equal(t, after, backend.calls)
}

func TestReconnect(t *testing.T) {
	ctx := context.Background()
	backend := &brokenBackend{}
	c := New(backend, "test")

	_, _ = c.GetRaw(ctx, "k")
	require.True(t, c.Degraded())

	assert.Error(t, c.Reconnect(ctx))
	assert.True(t, c.Degraded())
}

func TestGetOrSet(t *testing.T) {
	ctx := context.Background()
	c := newMemoryCache(t)

	var produced int
	producer := func(context.Context) (payload, error) {
		produced++
		return payload{Name: "computed"}, nil
	}

	first, err := GetOrSet(ctx, c, "k", time.Minute, producer)
	require.NoError(t, err)
	second, err := GetOrSet(ctx, c, "k", time.Minute, producer)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, produced)
}

func TestGetOrSetProducerErrorPropagates(t *testing.T) {
	ctx := context.Background()
	c := newMemoryCache(t)

	boom := errors.New("producer exploded")
	_, err := GetOrSet(ctx, c, "k", time.Minute, func(context.Context) (string, error) {
		return "", boom
	})

	assert.ErrorIs(t, err, boom)
	_, ok := Get[string](ctx, c, "k")
	assert.False(t, ok, "failed production must not be cached")
}

func TestGetOrSetWorksDegraded(t *testing.T) {
	ctx := context.Background()
	c := New(&brokenBackend{}, "test")

	v, err := GetOrSet(ctx, c, "k", time.Minute, func(context.Context) (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestMSetMGet(t *testing.T) {
	ctx := context.Background()
	c := newMemoryCache(t)

	require.True(t, MSet(ctx, c, map[string]int{"a": 1, "b": 2}, time.Minute))

	got := MGet[int](ctx, c, "a", "missing", "b")
	require.Len(t, got, 3)
	require.NotNil(t, got[0])
	assert.Equal(t, 1, *got[0])
	assert.Nil(t, got[1])
	require.NotNil(t, got[2])
	assert.Equal(t, 2, *got[2])
}

func TestIncrementAndTTL(t *testing.T) {
	ctx := context.Background()
	c := newMemoryCache(t)

	assert.Equal(t, int64(1), c.Increment(ctx, "n", 1))
	assert.Equal(t, int64(5), c.Increment(ctx, "n", 4))

	c.Set(ctx, "k", "v", time.Minute)
	ttl := c.GetTTL(ctx, "k")
	assert.Greater(t, ttl, 50*time.Second)
	assert.Zero(t, c.GetTTL(ctx, "absent"))
}

func TestKeysAreNamespaced(t *testing.T) {
	c := newMemoryCache(t)
	assert.Equal(t, "gitgauge:test:score:dev", c.Key("score:dev"))
}

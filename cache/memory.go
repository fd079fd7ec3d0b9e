package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	value     string
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-process Backend over a TTL'd LRU. It serves deployments
// without a Redis and doubles as the test backend.
type Memory struct {
	mu  sync.Mutex
	lru *lru.Cache[string, *entry]
}

func NewMemory(size int) (*Memory, error) {
	l, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, err
	}
	return &Memory{lru: l}, nil
}

func (m *Memory) lookup(key string) (*entry, bool) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	if e.expired(time.Now()) {
		m.lru.Remove(key)
		return nil, false
	}
	return e, true
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, value, ttl)
	return nil
}

func (m *Memory) set(key, value string, ttl time.Duration) {
	e := &entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.lru.Add(key, e)
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.lru.Remove(k)
	}
	return nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(key)
	return ok, nil
}

func (m *Memory) MGet(_ context.Context, keys ...string) ([]*string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*string, len(keys))
	for i, k := range keys {
		if e, ok := m.lookup(k); ok {
			v := e.value
			out[i] = &v
		}
	}
	return out, nil
}

func (m *Memory) MSet(_ context.Context, pairs map[string]string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range pairs {
		m.set(k, v, ttl)
	}
	return nil
}

func (m *Memory) IncrBy(_ context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current int64
	var expiresAt time.Time
	if e, ok := m.lookup(key); ok {
		n, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		current = n
		expiresAt = e.expiresAt
	}
	current += delta
	m.lru.Add(key, &entry{value: strconv.FormatInt(current, 10), expiresAt: expiresAt})
	return current, nil
}

func (m *Memory) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	if !ok {
		return -2, nil
	}
	if e.expiresAt.IsZero() {
		return -1, nil
	}
	return time.Until(e.expiresAt), nil
}

func (m *Memory) Ping(_ context.Context) error { return nil }

package storage

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryKV 进程内的会话级存储，LRU 淘汰，可选 TTL（0 表示不过期）
type MemoryKV struct {
	cache *lru.Cache[string, memItem]
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryKV(size int, ttl time.Duration) (*MemoryKV, error) {
	c, err := lru.New[string, memItem](size)
	if err != nil {
		return nil, err
	}
	return &MemoryKV{cache: c, ttl: ttl, now: time.Now}, nil
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	it, ok := m.cache.Get(key)
	if !ok {
		return nil, ErrMissing
	}
	if !it.expiresAt.IsZero() && m.now().After(it.expiresAt) {
		m.cache.Remove(key)
		return nil, ErrMissing
	}
	return append([]byte(nil), it.value...), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	it := memItem{value: append([]byte(nil), value...)}
	if m.ttl > 0 {
		it.expiresAt = m.now().Add(m.ttl)
	}
	m.cache.Add(key, it)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.cache.Remove(key)
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrMiss ключ отсутствует или истёк
var ErrMiss = errors.New("cache miss")

// Cache key/value хранилище с TTL для корзин и сессий checkout
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	GenerateKey(operation, key string) string
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache in-process реализация для разработки и тестов
type MemoryCache struct {
	mu          sync.RWMutex
	entries     map[string]memoryEntry
	serviceName string
	now         func() time.Time
	writes      int
}

// sweepEvery период полной чистки истёкших записей, в вызовах Set
const sweepEvery = 64

func NewMemoryCache(serviceName string) *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), serviceName: serviceName, now: time.Now}
}

var _ Cache = (*MemoryCache)(nil)

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if m.writes++; m.writes%sweepEvery == 0 {
		m.sweep(now)
	}
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	now := m.now()
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if e.expired(now) {
		m.mu.Lock()
		// запись могли перезаписать между блокировками
		if cur, ok := m.entries[key]; ok && cur.expired(now) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, ErrMiss
	}
	return append([]byte(nil), e.value...), nil
}

// sweep удаляет истёкшие записи; вызывается под m.mu
func (m *MemoryCache) sweep(now time.Time) {
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
		}
	}
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryCache) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", m.serviceName, operation, key)
}

// GetJSON читает и декодирует значение. found=false при промахе.
func GetJSON[T any](ctx context.Context, c Cache, key string) (v T, found bool, err error) {
	b, err := c.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, false, fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return v, true, nil
}

// SetJSON кодирует и сохраняет значение
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}
	return c.Set(ctx, key, b, ttl)
}

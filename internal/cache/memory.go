package cache

import (
	"context"
	"sync"
	"time"
)

// NewMemoryStore 返回进程内的 Store 实现，过期在读取时惰性判定。
// 仅适用于本地开发与测试：跨进程部署必须使用 Redis 后端，否则
// SetIfAbsent 的互斥范围只覆盖单个进程。
func NewMemoryStore() Store {
	return &memoryStore{
		entries:  make(map[string]memoryEntry),
		counters: make(map[string]int64),
	}
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type memoryStore struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	counters map[string]int64
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(time.Now()) {
		delete(s.entries, key)
		return nil, ErrNotFound
	}
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

func (s *memoryStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = newMemoryEntry(value, ttl)
	return nil
}

func (s *memoryStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok && !existing.expired(time.Now()) {
		return false, nil
	}
	s.entries[key] = newMemoryEntry(value, ttl)
	return true, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *memoryStore) IncrBy(ctx context.Context, name string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[name] += delta
	return s.counters[name], nil
}

func (s *memoryStore) CounterValue(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counters[name], nil
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func newMemoryEntry(value []byte, ttl time.Duration) memoryEntry {
	stored := make([]byte, len(value))
	copy(stored, value)

	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	return entry
}

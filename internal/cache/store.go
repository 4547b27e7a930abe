package cache

import (
	"context"
	"errors"
	"time"
)

// Store 抽象一个多实例共享、带过期能力的 KV 存储，是新鲜缓存、陈旧副本、
// 生产者锁与统计计数器的统一后端。互斥与计数的正确性完全依赖实现方的
// 原子语义（SetIfAbsent 必须是单次原子写，IncrBy 必须原子自增）。
type Store interface {
	// Get 返回键对应的值。不存在或已过期时返回 ErrNotFound。
	Get(ctx context.Context, key string) ([]byte, error)

	// SetWithTTL 无条件覆盖写入，并随写入原子地设置/刷新 TTL。
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetIfAbsent 仅在键不存在时原子地创建，返回本次调用是否创建成功。
	// 这是整个系统唯一的互斥原语，实现必须保证 check 与 set 不可分割。
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete 尽力删除；调用方只能将其用于提前释放锁，不能依赖删除后的
	// 可观测性（竞争写入方可能刚刚重建了该键）。
	Delete(ctx context.Context, key string) error

	// IncrBy 原子自增计数器并返回新值。
	IncrBy(ctx context.Context, name string, delta int64) (int64, error)

	// CounterValue 读取计数器当前值，不存在时返回 0。
	CounterValue(ctx context.Context, name string) (int64, error)

	// Ping 轻量存活探测，仅供健康检查面使用。
	Ping(ctx context.Context) error
}

// ErrNotFound 表示缓存不存在或已过期。
var ErrNotFound = errors.New("cache entry not found")

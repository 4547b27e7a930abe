package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions 控制 Redis 连接池与超时行为。
type RedisOptions struct {
	// URL 形如 redis://host:port/db，支持 rediss/unix scheme。
	URL         string
	PoolSize    int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// NewRedisStore 基于共享连接池构建 Store 实现，整个进程复用一份实例。
func NewRedisStore(opts RedisOptions) (Store, error) {
	if opts.URL == "" {
		return nil, errors.New("redis url required")
	}

	parsed, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if opts.PoolSize > 0 {
		parsed.PoolSize = opts.PoolSize
	}
	if opts.DialTimeout > 0 {
		parsed.DialTimeout = opts.DialTimeout
	}
	if opts.ReadTimeout > 0 {
		parsed.ReadTimeout = opts.ReadTimeout
		parsed.WriteTimeout = opts.ReadTimeout
	}

	return &redisStore{client: redis.NewClient(parsed)}, nil
}

type redisStore struct {
	client *redis.Client
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (s *redisStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return acquired, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) IncrBy(ctx context.Context, name string, delta int64) (int64, error) {
	value, err := s.client.IncrBy(ctx, name, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incrby %s: %w", name, err)
	}
	return value, nil
}

func (s *redisStore) CounterValue(ctx context.Context, name string) (int64, error) {
	value, err := s.client.Get(ctx, name).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", name, err)
	}
	return value, nil
}

func (s *redisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

package cache

import "testing"

func TestNewRedisStoreRejectsEmptyURL(t *testing.T) {
	if _, err := NewRedisStore(RedisOptions{}); err == nil {
		t.Fatalf("空 URL 应返回错误")
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore(RedisOptions{URL: "http://localhost:6379"}); err == nil {
		t.Fatalf("非 redis scheme 应返回错误")
	}
}

func TestNewRedisStoreParsesURL(t *testing.T) {
	store, err := NewRedisStore(RedisOptions{URL: "redis://localhost:6379/0", PoolSize: 10})
	if err != nil {
		t.Fatalf("合法 URL 不应报错: %v", err)
	}
	if store == nil {
		t.Fatalf("应返回 Store 实例")
	}
}

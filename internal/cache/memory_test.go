package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreExpiresLazily(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.SetWithTTL(ctx, "k", []byte("v"), 30*time.Millisecond); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if _, err := store.Get(ctx, "k"); err != nil {
		t.Fatalf("过期前应可读: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("过期后应返回 ErrNotFound: %v", err)
	}
}

func TestMemoryStoreSetIfAbsentIsExclusive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	acquired, err := store.SetIfAbsent(ctx, "lock", []byte("1"), time.Minute)
	if err != nil || !acquired {
		t.Fatalf("首次创建应成功: %v %v", acquired, err)
	}

	acquired, err = store.SetIfAbsent(ctx, "lock", []byte("2"), time.Minute)
	if err != nil || acquired {
		t.Fatalf("键存在时不应再次创建: %v %v", acquired, err)
	}

	if err := store.Delete(ctx, "lock"); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	acquired, err = store.SetIfAbsent(ctx, "lock", []byte("3"), time.Minute)
	if err != nil || !acquired {
		t.Fatalf("删除后应可重新创建: %v %v", acquired, err)
	}
}

func TestMemoryStoreSetIfAbsentReclaimsExpiredKey(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.SetIfAbsent(ctx, "lock", []byte("1"), 20*time.Millisecond); err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	acquired, err := store.SetIfAbsent(ctx, "lock", []byte("2"), time.Minute)
	if err != nil || !acquired {
		t.Fatalf("TTL 过期后应视为不存在: %v %v", acquired, err)
	}
}

func TestMemoryStoreCounters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if value, err := store.CounterValue(ctx, "c"); err != nil || value != 0 {
		t.Fatalf("未初始化计数器应为 0: %d %v", value, err)
	}
	if value, err := store.IncrBy(ctx, "c", 2); err != nil || value != 2 {
		t.Fatalf("自增结果应为 2: %d %v", value, err)
	}
	if value, err := store.IncrBy(ctx, "c", 1); err != nil || value != 3 {
		t.Fatalf("自增结果应为 3: %d %v", value, err)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.SetWithTTL(ctx, "k", []byte("abc"), time.Minute); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	first, _ := store.Get(ctx, "k")
	first[0] = 'x'

	second, _ := store.Get(ctx, "k")
	if string(second) != "abc" {
		t.Fatalf("读取结果不应共享底层数组: %s", second)
	}
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
)

// Options 控制 Guard 的全部时间参数。
type Options struct {
	// FreshTTL 是新鲜条目的基础存活时间。
	FreshTTL time.Duration
	// StaleTTL 是陈旧副本的存活时间，通常远大于 FreshTTL。
	StaleTTL time.Duration
	// JitterMax 是写入新鲜条目时附加的随机 TTL 上限，用于打散同批缓存的
	// 集中过期。为 0 时不加抖动。
	JitterMax time.Duration
	// LockTTL 是生产者锁的保险过期时间，防止崩溃的生产者永久阻塞后续请求。
	LockTTL time.Duration
	// WaitDeadline 是等待者轮询新鲜值的最长时间。
	WaitDeadline time.Duration
	// PollInterval 是等待者的轮询间隔。
	PollInterval time.Duration
}

// Producer 生成一份新值，通常封装一次上游调用。可能阻塞，可能失败。
type Producer func(ctx context.Context) ([]byte, error)

// Source 标记一次 GetOrProduce 的取值路径，供日志与响应头使用。
type Source string

const (
	// SourceHit 新鲜缓存直接命中。
	SourceHit Source = "hit"
	// SourceProduced 本次调用独占生产了新值。
	SourceProduced Source = "produced"
	// SourceCoalesced 等待其他生产者写入后取到新值。
	SourceCoalesced Source = "coalesced"
	// SourceStale 上游不可用，回退到陈旧副本。
	SourceStale Source = "stale"
)

// Result 是一次 GetOrProduce 的成功结果。
type Result struct {
	Value  []byte
	Source Source
	Stale  bool
}

// ErrUpstreamUnavailable 表示生产失败且无任何陈旧数据可回退，是 Guard
// 唯一向调用方暴露的终态错误。
var ErrUpstreamUnavailable = errors.New("upstream unavailable and no stale data")

// lockMarker 是锁键的占位值。锁不跟踪持有者身份：谁创建成功谁就是本轮
// 唯一生产者，释放靠显式删除或 TTL 兜底。
var lockMarker = []byte("1")

// Guard 对单个键的再生过程做防踩踏保护：新鲜命中走快路径；未命中时通过
// 共享存储的原子 SetIfAbsent 选出唯一生产者，其余调用方有界轮询等待；
// 生产失败或等待超时则回退到陈旧副本。
//
// 锁 TTL 在生产者异常缓慢时可能先于其完成而过期，此时第二个生产者会被
// 选出，造成有界的重复上游调用。这是可用性优先于严格互斥的取舍，而非
// 待修复的缺陷。存储层的任何故障都按"未命中/未获锁"吸收，绝不外传。
type Guard struct {
	store  Store
	keys   Keys
	opts   Options
	logger *logrus.Logger
}

// NewGuard 构建 Guard；store/logger 缺失或时间参数非法时报错。
func NewGuard(store Store, keys Keys, opts Options, logger *logrus.Logger) (*Guard, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.FreshTTL <= 0 {
		return nil, fmt.Errorf("invalid fresh ttl: %s", opts.FreshTTL)
	}
	if opts.StaleTTL <= 0 {
		return nil, fmt.Errorf("invalid stale ttl: %s", opts.StaleTTL)
	}
	if opts.JitterMax < 0 {
		return nil, fmt.Errorf("invalid jitter max: %s", opts.JitterMax)
	}
	if opts.LockTTL <= 0 {
		return nil, fmt.Errorf("invalid lock ttl: %s", opts.LockTTL)
	}
	if opts.WaitDeadline <= 0 {
		return nil, fmt.Errorf("invalid wait deadline: %s", opts.WaitDeadline)
	}
	if opts.PollInterval <= 0 {
		return nil, fmt.Errorf("invalid poll interval: %s", opts.PollInterval)
	}

	return &Guard{store: store, keys: keys, opts: opts, logger: logger}, nil
}

// GetOrProduce 返回 id 对应的值：新鲜命中、独占生产、等待搭车或陈旧回退。
// 四条路径都失败时返回 ErrUpstreamUnavailable。ctx 取消只中断当前调用方
// 自己的等待，不影响其他调用方。
func (g *Guard) GetOrProduce(ctx context.Context, id string, produce Producer) (Result, error) {
	freshKey := g.keys.Fresh(id)
	staleKey := g.keys.Stale(id)
	lockKey := g.keys.Lock(id)

	if value, ok := g.lookup(ctx, freshKey, id); ok {
		g.count(ctx, CounterHits)
		return Result{Value: value, Source: SourceHit}, nil
	}

	g.count(ctx, CounterMisses)

	acquired, err := g.store.SetIfAbsent(ctx, lockKey, lockMarker, g.opts.LockTTL)
	if err != nil {
		// 存储不可用时按未获锁处理：走等待路径，最终还有陈旧回退兜底。
		g.storeFault(err, "lock_acquire_failed", id)
		acquired = false
	}

	var produceErr error
	if acquired {
		value, err := produce(ctx)
		if err == nil {
			g.writeThrough(ctx, id, freshKey, staleKey, value)
			g.releaseLock(ctx, lockKey, id)
			g.count(ctx, CounterAPICalls)
			return Result{Value: value, Source: SourceProduced}, nil
		}
		produceErr = err
		// 先释放锁再找陈旧副本，让等待者尽快重新武装生产。
		g.releaseLock(ctx, lockKey, id)
	} else {
		if value, ok := g.await(ctx, freshKey, id); ok {
			g.count(ctx, CounterHits)
			g.count(ctx, CounterAvoided)
			return Result{Value: value, Source: SourceCoalesced}, nil
		}
		if err := ctx.Err(); err != nil {
			// 调用方放弃等待即可直接退出：它从未持有任何东西。
			return Result{}, err
		}
	}

	if value, ok := g.lookup(ctx, staleKey, id); ok {
		g.logger.WithFields(logrus.Fields{
			"action": "stale_fallback",
			"id":     id,
		}).Warn("serving stale value")
		return Result{Value: value, Source: SourceStale, Stale: true}, nil
	}

	if produceErr != nil {
		return Result{}, errors.Join(ErrUpstreamUnavailable, produceErr)
	}
	return Result{}, ErrUpstreamUnavailable
}

// await 以 PollInterval 为步长轮询新鲜键，直至取到值、ctx 取消或
// WaitDeadline 到期。
func (g *Guard) await(ctx context.Context, freshKey, id string) ([]byte, bool) {
	deadline := time.NewTimer(g.opts.WaitDeadline)
	defer deadline.Stop()
	ticker := time.NewTicker(g.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-deadline.C:
			return nil, false
		case <-ticker.C:
			if value, ok := g.lookup(ctx, freshKey, id); ok {
				return value, true
			}
		}
	}
}

// lookup 读取单个键，把存储故障与未命中统一折叠为 "没有值"。
func (g *Guard) lookup(ctx context.Context, key, id string) ([]byte, bool) {
	value, err := g.store.Get(ctx, key)
	if err == nil {
		return value, true
	}
	if !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
		g.storeFault(err, "cache_get_failed", id)
	}
	return nil, false
}

// writeThrough 写入新鲜条目（带抖动 TTL）与陈旧副本。陈旧副本仅在新鲜
// 写入成功后才写，保证两者来自同一次成功生产。写失败只降级为日志：
// 值已经生产出来，本次调用仍然成功。
func (g *Guard) writeThrough(ctx context.Context, id, freshKey, staleKey string, value []byte) {
	ttl := withJitter(g.opts.FreshTTL, g.opts.JitterMax)
	if err := g.store.SetWithTTL(ctx, freshKey, value, ttl); err != nil {
		g.storeFault(err, "cache_write_failed", id)
		return
	}
	if err := g.store.SetWithTTL(ctx, staleKey, value, g.opts.StaleTTL); err != nil {
		g.storeFault(err, "stale_write_failed", id)
	}
}

func (g *Guard) releaseLock(ctx context.Context, lockKey, id string) {
	if err := g.store.Delete(ctx, lockKey); err != nil {
		// TTL 会兜底释放，删除失败只影响下一轮生产的启动时机。
		g.storeFault(err, "lock_release_failed", id)
	}
}

// count 自增计数器，fail-open：计数失败不影响主流程。
func (g *Guard) count(ctx context.Context, name string) {
	if _, err := g.store.IncrBy(ctx, g.keys.Counter(name), 1); err != nil {
		g.logger.WithError(err).WithFields(logrus.Fields{
			"action":  "counter_incr_failed",
			"counter": name,
		}).Debug("统计计数失败")
	}
}

func (g *Guard) storeFault(err error, action, id string) {
	g.logger.WithError(err).WithFields(logrus.Fields{
		"action": action,
		"id":     id,
	}).Warn("存储操作失败，按未命中处理")
}

// withJitter 返回 base 加上 [0, max) 的随机偏移。
func withJitter(base, max time.Duration) time.Duration {
	if max <= 0 {
		return base
	}
	return base + time.Duration(rand.Int64N(int64(max)))
}

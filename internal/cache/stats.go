package cache

import "context"

// 四个统计计数器的名称，存储在命名空间下的 stats: 前缀内。
// 计数器只增不减，多个实例共享同一份后端计数。
const (
	CounterHits     = "cache_hits"
	CounterMisses   = "cache_misses"
	CounterAPICalls = "api_calls"
	CounterAvoided  = "avoided_api_calls"
)

// Snapshot 是统计计数器的一次性读取结果，供运维状态接口输出。
type Snapshot struct {
	Hits            int64    `json:"cache_hits"`
	Misses          int64    `json:"cache_misses"`
	APICalls        int64    `json:"api_calls"`
	AvoidedAPICalls int64    `json:"avoided_api_calls"`
	HitRatio        *float64 `json:"hit_ratio"`
}

// ReadSnapshot 依次读取四个计数器并计算命中率；尚无任何请求时 HitRatio
// 为 null。读取之间不保证一致性切面，计数仅用于观测。
func ReadSnapshot(ctx context.Context, store Store, keys Keys) (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Hits, err = store.CounterValue(ctx, keys.Counter(CounterHits)); err != nil {
		return Snapshot{}, err
	}
	if snap.Misses, err = store.CounterValue(ctx, keys.Counter(CounterMisses)); err != nil {
		return Snapshot{}, err
	}
	if snap.APICalls, err = store.CounterValue(ctx, keys.Counter(CounterAPICalls)); err != nil {
		return Snapshot{}, err
	}
	if snap.AvoidedAPICalls, err = store.CounterValue(ctx, keys.Counter(CounterAvoided)); err != nil {
		return Snapshot{}, err
	}

	if total := snap.Hits + snap.Misses; total > 0 {
		ratio := float64(snap.Hits) / float64(total)
		snap.HitRatio = &ratio
	}

	return snap, nil
}

// Package weather 把键命名、共享存储、防踩踏引擎与上游 provider 组装成
// 请求层可直接消费的 fetch 入口。
package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/weather-hub/weather-hub/internal/cache"
	"github.com/weather-hub/weather-hub/internal/provider"
)

// ErrCityRequired 表示请求缺少城市参数。
var ErrCityRequired = errors.New("city required")

// FetchFunc 按城市取一份实时观测，是注入的上游能力。
type FetchFunc func(ctx context.Context, city string) (*provider.Observation, error)

// Options 汇总构建 Service 所需的全部依赖。
type Options struct {
	Store  cache.Store
	Keys   cache.Keys
	Policy cache.Options
	Fetch  FetchFunc
	Logger *logrus.Logger
}

// Service 是对请求层暴露的唯一入口：Fetch 取数，Stats/Healthy 供运维面。
type Service struct {
	guard  *cache.Guard
	store  cache.Store
	keys   cache.Keys
	fetch  FetchFunc
	logger *logrus.Logger
}

// NewService 组装 Service，依赖缺失时报错。
func NewService(opts Options) (*Service, error) {
	if opts.Fetch == nil {
		return nil, errors.New("fetch func is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}

	guard, err := cache.NewGuard(opts.Store, opts.Keys, opts.Policy, opts.Logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		guard:  guard,
		store:  opts.Store,
		keys:   opts.Keys,
		fetch:  opts.Fetch,
		logger: opts.Logger,
	}, nil
}

// Fetch 返回城市的当前天气：新鲜缓存、独占生产、等待搭车或陈旧回退。
// 上游失败且无陈旧副本时返回 cache.ErrUpstreamUnavailable。
func (s *Service) Fetch(ctx context.Context, city string) (*provider.Observation, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrCityRequired
	}

	result, err := s.guard.GetOrProduce(ctx, city, func(ctx context.Context) ([]byte, error) {
		obs, err := s.fetch(ctx, city)
		if err != nil {
			return nil, err
		}
		return json.Marshal(obs)
	})
	if err != nil {
		return nil, err
	}

	var obs provider.Observation
	if err := json.Unmarshal(result.Value, &obs); err != nil {
		return nil, fmt.Errorf("decode cached value for %q: %w", city, err)
	}
	if result.Stale {
		obs.Stale = true
	}

	s.logger.WithFields(logrus.Fields{
		"action": "fetch",
		"city":   city,
		"source": string(result.Source),
		"stale":  result.Stale,
	}).Debug("天气取数完成")

	return &obs, nil
}

// Stats 读取共享存储中的四个计数器快照。
func (s *Service) Stats(ctx context.Context) (cache.Snapshot, error) {
	return cache.ReadSnapshot(ctx, s.store, s.keys)
}

// Healthy 探测共享存储是否可达。
func (s *Service) Healthy(ctx context.Context) bool {
	return s.store.Ping(ctx) == nil
}

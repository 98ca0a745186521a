package source

import (
	"context"
	"time"

	"github.com/rushteam/eventrec/core"
)

// Options 描述事件源装饰链，零值表示不启用对应装饰。
type Options struct {
	// CacheTTL 结果缓存时长
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// RateLimit 每秒请求数，Burst 为突发容量
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	Burst     int     `mapstructure:"burst" validate:"gte=0"`
	// Breaker 熔断配置，Enabled 为 false 时不启用
	BreakerEnabled bool          `mapstructure:"breaker_enabled"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

// Decorate 按 缓存 → 熔断 → 限流 → 下游 的顺序包装事件源。
// 命中缓存的请求不消耗熔断与限流配额。
func Decorate(src core.EventSource, opts Options) core.EventSource {
	if opts.RateLimit > 0 {
		src = NewRateLimitedSource(src, opts.RateLimit, opts.Burst)
	}
	if opts.BreakerEnabled {
		src = NewBreakerSource(src, opts.Breaker)
	}
	if opts.CacheTTL > 0 {
		src = NewCachedSource(src, opts.CacheTTL)
	}
	return src
}

// ObservedSource 在每次查询后回调 OnCall，用于计数与观测。
type ObservedSource struct {
	Next   core.EventSource
	OnCall func(source string, q core.Query, err error)
}

var _ core.EventSource = (*ObservedSource)(nil)

func (s *ObservedSource) Name() string { return s.Next.Name() }

func (s *ObservedSource) Search(ctx context.Context, q core.Query) ([]core.RawEvent, error) {
	out, err := s.Next.Search(ctx, q)
	if s.OnCall != nil {
		s.OnCall(s.Next.Name(), q, err)
	}
	return out, err
}

// FuncSource 把函数适配为事件源。
type FuncSource struct {
	SourceName string
	Fn         func(ctx context.Context, q core.Query) ([]core.RawEvent, error)
}

var _ core.EventSource = (*FuncSource)(nil)

func (s *FuncSource) Name() string { return s.SourceName }

func (s *FuncSource) Search(ctx context.Context, q core.Query) ([]core.RawEvent, error) {
	return s.Fn(ctx, q)
}

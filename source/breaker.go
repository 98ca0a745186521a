package source

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pkg/log"
)

// BreakerConfig 是熔断器配置。
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold" validate:"gte=1"`
}

// DefaultBreakerConfig 连续失败 5 次后熔断 30 秒
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerSource 为事件源加上熔断保护：熔断打开时直接失败，不再请求下游。
type BreakerSource struct {
	next core.EventSource
	cb   *gobreaker.CircuitBreaker[[]core.RawEvent]
}

var _ core.EventSource = (*BreakerSource)(nil)

func NewBreakerSource(next core.EventSource, cfg BreakerConfig) *BreakerSource {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Logger().Warn("event source breaker state changed",
				zap.String("source", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &BreakerSource{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[[]core.RawEvent](settings),
	}
}

func (s *BreakerSource) Name() string { return s.next.Name() }

// State 返回熔断器状态（closed/half-open/open）
func (s *BreakerSource) State() string { return s.cb.State().String() }

func (s *BreakerSource) Search(ctx context.Context, q core.Query) ([]core.RawEvent, error) {
	out, err := s.cb.Execute(func() ([]core.RawEvent, error) {
		return s.next.Search(ctx, q)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrSourceUnavailable, s.Name(), err)
	}
	return out, err
}

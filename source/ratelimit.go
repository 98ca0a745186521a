package source

import (
	"context"

	"github.com/juju/errors"
	"golang.org/x/time/rate"

	"github.com/rushteam/eventrec/core"
)

// RateLimitedSource 限制对下游事件源的请求速率；
// 区域扇出会在同一时刻发起大量查询，超出速率的请求排队等待，直到 ctx 超时。
type RateLimitedSource struct {
	next    core.EventSource
	limiter *rate.Limiter
}

var _ core.EventSource = (*RateLimitedSource)(nil)

// NewRateLimitedSource 每秒最多 rps 个请求，允许 burst 个突发。
func NewRateLimitedSource(next core.EventSource, rps float64, burst int) *RateLimitedSource {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedSource{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (s *RateLimitedSource) Name() string { return s.next.Name() }

func (s *RateLimitedSource) Search(ctx context.Context, q core.Query) ([]core.RawEvent, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.Annotatef(err, "rate limit %s", s.next.Name())
	}
	return s.next.Search(ctx, q)
}

package source

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/rushteam/eventrec/core"
)

// CachedSource 缓存成功的查询结果，相同 Query 在 TTL 内不再请求下游。失败不缓存。
type CachedSource struct {
	next  core.EventSource
	cache *ttlcache.Cache[core.Query, []core.RawEvent]
}

var _ core.EventSource = (*CachedSource)(nil)

func NewCachedSource(next core.EventSource, ttl time.Duration) *CachedSource {
	c := ttlcache.New(
		ttlcache.WithTTL[core.Query, []core.RawEvent](ttl),
		ttlcache.WithDisableTouchOnHit[core.Query, []core.RawEvent](),
	)
	go c.Start()
	return &CachedSource{next: next, cache: c}
}

func (s *CachedSource) Name() string { return s.next.Name() }

func (s *CachedSource) Search(ctx context.Context, q core.Query) ([]core.RawEvent, error) {
	if item := s.cache.Get(q); item != nil {
		return item.Value(), nil
	}
	out, err := s.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	s.cache.Set(q, out, ttlcache.DefaultTTL)
	return out, nil
}

// Len 返回缓存条目数
func (s *CachedSource) Len() int { return s.cache.Len() }

// Close 停止过期清理
func (s *CachedSource) Close() { s.cache.Stop() }

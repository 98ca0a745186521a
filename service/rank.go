package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/feature"
	"github.com/rushteam/eventrec/filter"
	"github.com/rushteam/eventrec/learner"
	"github.com/rushteam/eventrec/pipeline"
	"github.com/rushteam/eventrec/pkg/log"
	"github.com/rushteam/eventrec/rank"
	"github.com/rushteam/eventrec/recall"
	"github.com/rushteam/eventrec/rerank"
)

const (
	ModeInternal = "internal"
	ModeLive     = "live"
	ModeSearch   = "search"
)

// ErrNoEventSource 表示服务未配置事件源
var ErrNoEventSource = core.NewDomainError(core.ModuleService, core.ErrorCodeNotSupported, "service: no event source configured")

// RankInternalCandidates 对本地存储的事件做混合排序（内容 + 上下文 + CF-lite + 流行度）。
func (s *Service) RankInternalCandidates(ctx context.Context, userID string, limit int) ([]*core.Item, error) {
	start := time.Now()
	rctx, err := s.recommendContext(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	p := &pipeline.Pipeline{
		Name: ModeInternal,
		Nodes: s.withFilter(
			&recall.InternalSource{Repo: s.repo, Limit: s.cfg.Recall.InternalLimit},
			&feature.ExtractNode{},
		),
	}
	p.Nodes = append(p.Nodes,
		&rank.HybridNode{
			Model:      s.model,
			Context:    s.cfg.Rank.Context,
			Popularity: s.cfg.Rank.Popularity,
			Weights:    s.cfg.Rank.Hybrid,
			Neighbors:  &rank.NeighborScorer{Repo: s.repo, LikedRating: core.LikedRating},
		},
		&rerank.TopNNode{},
	)
	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveRank(ModeInternal, start, len(items))
	return items, nil
}

// RankLiveCandidates 从事件源按地区并发召回，实时排序并按偏好国家保量。
// 事件源全部不可用时返回空列表；配置了 recall.strict 时返回 core.ErrSourceUnavailable。
func (s *Service) RankLiveCandidates(ctx context.Context, userID string, limit int) ([]*core.Item, error) {
	if s.events == nil {
		return nil, ErrNoEventSource
	}
	start := time.Now()
	rctx, err := s.recommendContext(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	regions := s.cfg.Recall.Regions
	if len(regions) == 0 {
		regions = recall.Regions
	}
	p := &pipeline.Pipeline{
		Name: ModeLive,
		Nodes: s.withFilter(
			&recall.LiveRecall{
				Events:        s.events,
				Regions:       regions,
				PageSize:      s.cfg.Recall.PageSize,
				Timeout:       s.cfg.Recall.Timeout,
				MaxConcurrent: s.cfg.Recall.MaxConcurrent,
				OnError:       s.onRegionError,
			},
			&feature.ExtractNode{},
		),
	}
	p.Nodes = append(p.Nodes,
		&rank.LiveNode{Model: s.model, Context: s.cfg.Rank.Context},
		&rerank.CountryQuota{Ratio: s.cfg.Rank.QuotaRatio, MaxQuota: s.cfg.Rank.MaxQuota},
		&rerank.TopNNode{},
	)
	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return s.unavailable(ModeLive, userID, err)
	}
	s.metrics.ObserveRank(ModeLive, start, len(items))
	return items, nil
}

// SearchParams 是个性化搜索的请求参数。
type SearchParams struct {
	Keyword  string
	Category string
	Country  string
	PriceMin *float64
	PriceMax *float64
	PageSize int
}

// SearchEvents 记录搜索信号后查询事件源，按预算过滤并实时排序。
// 搜索信号记录失败不影响搜索结果。
func (s *Service) SearchEvents(ctx context.Context, userID string, params SearchParams) ([]*core.Item, error) {
	if s.events == nil {
		return nil, ErrNoEventSource
	}
	start := time.Now()
	if userID != "" {
		_, err := s.RecordSearchSignal(ctx, userID, learner.SearchSignal{
			Query:    params.Keyword,
			Category: params.Category,
			Country:  params.Country,
			PriceMin: params.PriceMin,
			PriceMax: params.PriceMax,
		})
		if err != nil {
			log.Logger().Warn("failed to record search signal", zap.String("user_id", userID), zap.Error(err))
		}
	}
	rctx, err := s.recommendContext(ctx, userID, params.PageSize)
	if err != nil {
		return nil, err
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.Recall.PageSize
	}
	query := &recall.QuerySource{
		Label:  "search",
		Events: s.events,
		Query: core.Query{
			Keyword:     strings.TrimSpace(params.Keyword),
			Category:    core.NormalizeCategory(params.Category),
			CountryCode: core.NormalizeCountry(params.Country),
			PageSize:    pageSize,
		},
	}
	p := &pipeline.Pipeline{
		Name: ModeSearch,
		Nodes: s.withFilter(
			&recall.Fanout{Sources: []recall.Source{query}, Timeout: s.cfg.Recall.Timeout, OnError: s.onRegionError},
			&feature.ExtractNode{},
		),
	}
	p.Nodes = append(p.Nodes,
		&filter.FilterNode{Filters: []filter.Filter{&filter.BudgetFilter{Min: params.PriceMin, Max: params.PriceMax}}},
		&rank.LiveNode{Model: s.model, Context: s.cfg.Rank.Context},
		&rerank.TopNNode{},
	)
	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return s.unavailable(ModeSearch, userID, err)
	}
	s.metrics.ObserveRank(ModeSearch, start, len(items))
	return items, nil
}

// withFilter 在召回与特征节点后追加配置的表达式过滤。
func (s *Service) withFilter(nodes ...pipeline.Node) []pipeline.Node {
	if s.filter != nil {
		nodes = append(nodes, &filter.FilterNode{Filters: []filter.Filter{s.filter}})
	}
	return nodes
}

// onRegionError 以国家代码（region:AU、preferred:AU）或查询名（global、search）计数
func (s *Service) onRegionError(source string, _ error) {
	if _, code, ok := strings.Cut(source, ":"); ok {
		source = code
	}
	s.metrics.ObserveRegionFailure(source)
}

func (s *Service) unavailable(mode, userID string, err error) ([]*core.Item, error) {
	if !core.IsUnavailable(err) {
		return nil, err
	}
	s.metrics.SourceUnavailableTotal.Inc()
	if s.cfg.Recall.Strict {
		return nil, err
	}
	log.Logger().Warn("event source unavailable, returning empty result",
		zap.String("mode", mode), zap.String("user_id", userID), zap.Error(err))
	return []*core.Item{}, nil
}

package recall

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/samber/lo"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pipeline"
	"github.com/rushteam/eventrec/pkg/utils"
)

// InternalSource 从本地存储召回内部事件，并加载聚合计数供流行度打分使用。
// 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type InternalSource struct {
	Repo  core.Repository
	Limit int
	// Filter 为 nil 时由用户偏好生成（见 FilterFromPreferences）
	Filter *core.EventFilter
}

func (s *InternalSource) Name() string        { return "recall.internal" }
func (s *InternalSource) Kind() pipeline.Kind { return pipeline.KindRecall }

func (s *InternalSource) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return s.Recall(ctx, rctx)
}

func (s *InternalSource) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	f := FilterFromPreferences(rctx.Preferences(), rctx.Now)
	if s.Filter != nil {
		f = *s.Filter
	}
	limit := s.Limit
	if limit <= 0 {
		limit = core.DefaultFilterLimit
	}
	events, err := s.Repo.FindEventsByFilter(ctx, f, limit)
	if err != nil {
		return nil, errors.Trace(err)
	}
	stats, err := s.Repo.GetEventStats(ctx, lo.Map(events, func(e *core.Event, _ int) string { return e.ID }))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(events, func(e *core.Event, _ int) *core.Item {
		it := core.NewEventItem(e, stats[e.ID])
		it.PutLabel("recall_source", utils.Label{Value: "internal", Source: "recall"})
		return it
	}), nil
}

// FilterFromPreferences 根据用户显式设置生成候选过滤条件：
// 开始时间不早于 now（设置了 StartDate 且更晚时取 StartDate），不晚于 EndDate；
// 类别限定为显式类别；最低价限定在预算区间内。
func FilterFromPreferences(p *core.Preferences, now time.Time) core.EventFilter {
	from := now
	if p.StartDate != nil && p.StartDate.After(now) {
		from = *p.StartDate
	}
	f := core.EventFilter{
		From:       &from,
		To:         p.EndDate,
		Categories: lo.Filter(p.Categories, func(c string, _ int) bool { return core.NormalizeCategory(c) != "" }),
		PriceMin:   p.PriceMin,
		PriceMax:   p.PriceMax,
	}
	return f
}

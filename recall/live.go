package recall

import (
	"context"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pipeline"
	"github.com/rushteam/eventrec/pkg/log"
)

// LiveRecall 是实时召回 Node：按地区目录并发查询事件源（World 模式），
// 用户设置了 PreferredCountry 时额外查询一次该国家，合并去重。
// 合并后为空时，不带国家/类别限制重试一次（全局兜底）。
// 只有所有查询（包括兜底）都失败时才返回 core.ErrSourceUnavailable。
type LiveRecall struct {
	Events        core.EventSource
	Regions       []string
	PageSize      int
	Timeout       time.Duration
	// MaxConcurrent 为 0 时所有地区查询同时发出，并发数等于查询数
	MaxConcurrent int
	OnError       func(source string, err error)
}

func (n *LiveRecall) Name() string        { return "recall.live" }
func (n *LiveRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Sources 根据用户偏好生成本次请求的地区查询。
func (n *LiveRecall) Sources(prefs *core.Preferences) []Source {
	regions := n.Regions
	if len(regions) == 0 {
		regions = Regions
	}
	category := prefs.TopCategory()
	sources := make([]Source, 0, len(regions)+1)
	if code := core.NormalizeCountry(prefs.PreferredCountry); code != "" {
		sources = append(sources, &QuerySource{
			Label:  "preferred:" + code,
			Events: n.Events,
			Query:  core.Query{Category: category, CountryCode: code, PageSize: n.pageSize()},
		})
	}
	for _, code := range regions {
		sources = append(sources, &QuerySource{
			Events: n.Events,
			Query:  core.Query{Category: category, CountryCode: code, PageSize: n.pageSize()},
		})
	}
	return sources
}

func (n *LiveRecall) pageSize() int {
	if n.PageSize > 0 {
		return n.PageSize
	}
	return core.DefaultPageSize
}

func (n *LiveRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	fanout := &Fanout{
		Sources:       n.Sources(rctx.Preferences()),
		Dedup:         true,
		Timeout:       n.Timeout,
		MaxConcurrent: n.MaxConcurrent,
		OnError:       n.OnError,
	}
	items, err := fanout.Process(ctx, rctx, nil)
	regionsDown := core.IsUnavailable(err)
	if err != nil && !regionsDown {
		return nil, err
	}
	if len(items) > 0 {
		return items, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	log.Logger().Info("regional recall empty, falling back to global query", zap.String("user_id", rctx.UserID))
	global := &QuerySource{Events: n.Events, Query: core.Query{PageSize: n.pageSize()}}
	fallback := &Fanout{Sources: []Source{global}, Dedup: true, Timeout: n.Timeout, OnError: n.OnError}
	items, err = fallback.Process(ctx, rctx, nil)
	switch {
	case err == nil:
		return items, nil
	case core.IsUnavailable(err) && regionsDown:
		return nil, errors.Trace(err)
	case core.IsUnavailable(err):
		return nil, nil
	default:
		return nil, err
	}
}

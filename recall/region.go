package recall

import (
	"context"

	"github.com/juju/errors"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pipeline"
	"github.com/rushteam/eventrec/pkg/utils"
)

// QuerySource 把一次事件源查询包装成召回源，返回外部候选。
// 没有 id 的记录被丢弃。
type QuerySource struct {
	Label  string
	Events core.EventSource
	Query  core.Query
}

func (s *QuerySource) Name() string {
	if s.Label != "" {
		return s.Label
	}
	if s.Query.CountryCode != "" {
		return "region:" + s.Query.CountryCode
	}
	return "global"
}

func (s *QuerySource) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (s *QuerySource) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return s.Recall(ctx, rctx)
}

func (s *QuerySource) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	raws, err := s.Events.Search(ctx, s.Query)
	if err != nil {
		return nil, errors.Annotatef(err, "search %s", s.Name())
	}
	out := make([]*core.Item, 0, len(raws))
	for _, raw := range raws {
		id := raw.ID()
		if id == "" {
			continue
		}
		it := core.NewItem(id, core.SourceExternal, raw)
		it.PutLabel("recall_source", utils.Label{Value: s.Name(), Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}

package recall

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pipeline"
	"github.com/rushteam/eventrec/pkg/log"
	"github.com/rushteam/eventrec/pkg/utils"
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
//
//   - 每个召回源有独立的超时；失败或超时的召回源贡献 0 个结果并记录 warning，不影响其他召回源
//   - 等待所有召回源返回后再合并（不流式返回部分结果）
//   - 按 Sources 顺序合并，Dedup 时同 ID 保留第一个出现的
//   - 所有召回源都失败时返回 core.ErrSourceUnavailable
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）

	// OnError 在召回源失败时回调（可选，用于打点）
	OnError func(source string, err error)
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	results := make([][]*core.Item, len(n.Sources))
	failed := make([]bool, len(n.Sources))
	eg := new(errgroup.Group)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, s := range n.Sources {
		eg.Go(func() error {
			recallCtx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}

			items, err := s.Recall(recallCtx, rctx)
			if err != nil {
				// 超时或错误时返回空结果，不中断其他召回源
				failed[i] = true
				log.Logger().Warn("recall source failed", zap.String("source", s.Name()), zap.Error(err))
				if n.OnError != nil {
					n.OnError(s.Name(), err)
				}
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = eg.Wait()

	if allTrue(failed) {
		return nil, core.ErrSourceUnavailable
	}
	return n.merge(results), nil
}

// merge 按召回源顺序合并；Dedup 时同 ID 保留第一个出现的，并合并后来者的 labels。
func (n *Fanout) merge(results [][]*core.Item) []*core.Item {
	seen := make(map[string]*core.Item)
	out := make([]*core.Item, 0)
	for priority, items := range results {
		for _, it := range items {
			if it == nil {
				continue
			}
			if n.Dedup {
				if old, ok := seen[it.ID]; ok {
					for k, v := range it.Labels {
						old.PutLabel(k, v)
					}
					continue
				}
				seen[it.ID] = it
			}
			if _, ok := it.Labels["recall_priority"]; !ok {
				it.PutLabel("recall_priority", utils.Label{Value: strconv.Itoa(priority), Source: "recall"})
			}
			out = append(out, it)
		}
	}
	return out
}

func allTrue(bs []bool) bool {
	for _, b := range bs {
		if !b {
			return false
		}
	}
	return len(bs) > 0
}

package rank

import (
	"context"

	"go.uber.org/zap"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/model"
	"github.com/rushteam/eventrec/pipeline"
	"github.com/rushteam/eventrec/pkg/log"
	"github.com/rushteam/eventrec/pkg/utils"
)

// HybridWeights 是内部数据集模式下各归一化信号的线性组合系数。
type HybridWeights struct {
	Content    float64 `mapstructure:"content"`
	Context    float64 `mapstructure:"context"`
	CF         float64 `mapstructure:"cf"`
	Popularity float64 `mapstructure:"popularity"`
}

// DefaultHybridWeights 返回默认系数。
func DefaultHybridWeights() HybridWeights {
	return HybridWeights{Content: 0.4, Context: 0.25, CF: 0.25, Popularity: 0.1}
}

// HybridNode 是内部数据集模式的排序 Node：
// 内容分（偏好模型）、上下文分、CF-lite 分、流行度分各自在候选集内 min-max 归一化后线性组合。
//   - 写入 item.Scores 各分量原始值与 labels：rank_mode
//   - 更新 item.Score 并排序
type HybridNode struct {
	Model      model.ScoringModel
	Context    ContextWeights
	Popularity PopularityWeights
	Weights    HybridWeights
	Neighbors  *NeighborScorer
}

func (n *HybridNode) Name() string        { return "rank.hybrid" }
func (n *HybridNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *HybridNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	items = compact(items)
	if len(items) == 0 {
		return items, nil
	}
	prefs := rctx.Preferences()

	content := make([]float64, len(items))
	contextual := make([]float64, len(items))
	popularity := make([]float64, len(items))
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
		content[i] = n.Model.Score(prefs, it.Features)
		contextual[i] = n.Context.Score(rctx, it)
		popularity[i] = n.Popularity.Score(it.Stats)
	}

	cf := make([]float64, len(items))
	if n.Neighbors != nil {
		scores, err := n.Neighbors.Scores(ctx, rctx.UserID, ids)
		if err != nil {
			// CF-lite 不可用时退化为 0，不影响其他信号
			log.Logger().Warn("failed to compute neighbor scores", zap.String("user_id", rctx.UserID), zap.Error(err))
		} else {
			cf = scores
		}
	}

	nContent, nContext, nCF, nPop := MinMax(content), MinMax(contextual), MinMax(cf), MinMax(popularity)
	w := n.Weights
	for i, it := range items {
		it.SetScore(core.ScoreContent, content[i])
		it.SetScore(core.ScoreContext, contextual[i])
		it.SetScore(core.ScoreCF, cf[i])
		it.SetScore(core.ScorePopularity, popularity[i])
		it.Score = w.Content*nContent[i] + w.Context*nContext[i] + w.CF*nCF[i] + w.Popularity*nPop[i]
		it.PutLabel("rank_mode", utils.Label{Value: "internal", Source: "rank"})
	}
	return SortItems(items), nil
}

// LiveNode 是实时（外部事件源）模式的排序 Node：final = 偏好模型分 + 上下文分（不归一化）。
// 外部候选没有评分与点击数据，因此不使用 CF-lite 与流行度。
type LiveNode struct {
	Model   model.ScoringModel
	Context ContextWeights
}

func (n *LiveNode) Name() string        { return "rank.live" }
func (n *LiveNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *LiveNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	items = compact(items)
	prefs := rctx.Preferences()
	for _, it := range items {
		content := n.Model.Score(prefs, it.Features)
		contextual := n.Context.Score(rctx, it)
		it.SetScore(core.ScoreContent, content)
		it.SetScore(core.ScoreContext, contextual)
		it.Score = content + contextual
		it.PutLabel("rank_mode", utils.Label{Value: "live", Source: "rank"})
	}
	return SortItems(items), nil
}

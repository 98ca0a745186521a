package pipeline

import (
	"context"

	"github.com/rushteam/eventrec/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall  Kind = "recall"  // 召回阶段：生成候选集
	KindFeature Kind = "feature" // 特征阶段：规范化候选的原始记录
	KindFilter  Kind = "filter"  // 过滤阶段：剔除不符合约束的候选
	KindRank    Kind = "rank"    // 排序阶段：对候选打分并排序
	KindReRank  Kind = "rerank"  // 重排阶段：在排序结果上做多样性/截断
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态，方便 Recall 生成、Filter 截断、ReRank 重排等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// NodeFunc 把普通函数适配为 Node。
type NodeFunc struct {
	NodeName string
	NodeKind Kind
	Fn       func(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error)
}

func (f *NodeFunc) Name() string { return f.NodeName }
func (f *NodeFunc) Kind() Kind   { return f.NodeKind }

func (f *NodeFunc) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return f.Fn(ctx, rctx, items)
}

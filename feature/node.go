package feature

import (
	"context"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pipeline"
)

// ExtractNode 为每个候选填充规范化特征、开始时间与坐标。
// 已有特征的 Item 会被重新抽取，保证与 Raw 一致。
type ExtractNode struct {
	// Extractors 按来源类型覆盖默认抽取器（可选）
	Extractors map[core.SourceKind]Extractor
}

func (n *ExtractNode) Name() string        { return "feature.extract" }
func (n *ExtractNode) Kind() pipeline.Kind { return pipeline.KindFeature }

func (n *ExtractNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	for _, it := range items {
		if it == nil {
			continue
		}
		if e, ok := n.Extractors[it.Kind]; ok {
			it.Features = e.Extract(it.Raw)
		} else {
			it.Features = Extract(it.Raw, it.Kind)
		}
		it.Start = StartTime(it.Raw, it.Kind)
		it.Lat, it.Lon = Coordinates(it.Raw)
	}
	return items, nil
}

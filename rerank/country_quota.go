package rerank

import (
	"context"
	"math"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pipeline"
	"github.com/rushteam/eventrec/pkg/utils"
)

// CountryQuota 是按国家保量的多样性 ReRank：
// 用户设置了 PreferredCountry 时，先从排序结果中为该国家预留
// quota = min(MaxQuota, ceil(Ratio*limit)) 个位置，其余位置由剩余候选中排序最靠前的填充。
// 被选中的候选保持原排序顺序。未设置 PreferredCountry 时只做截断。
type CountryQuota struct {
	Ratio    float64
	MaxQuota int
	// Limit 为 0 时使用 rctx.Limit；两者都为 0 时不截断
	Limit int
}

const (
	DefaultQuotaRatio = 0.4
	DefaultMaxQuota   = 8
)

func (n *CountryQuota) Name() string        { return "rerank.country_quota" }
func (n *CountryQuota) Kind() pipeline.Kind { return pipeline.KindReRank }

// Quota 返回 limit 下的预留位置数。
func (n *CountryQuota) Quota(limit int) int {
	ratio, maxQuota := n.Ratio, n.MaxQuota
	if ratio <= 0 {
		ratio = DefaultQuotaRatio
	}
	if maxQuota <= 0 {
		maxQuota = DefaultMaxQuota
	}
	q := int(math.Ceil(ratio * float64(limit)))
	if q > maxQuota {
		q = maxQuota
	}
	return q
}

func (n *CountryQuota) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.Limit
	if limit <= 0 {
		limit = rctx.Limit
	}
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}
	preferred := core.NormalizeCountry(rctx.Preferences().PreferredCountry)
	if preferred == "" {
		return items[:limit], nil
	}

	selected := make([]bool, len(items))
	count := 0
	quota := n.Quota(limit)
	for i, it := range items {
		if count >= quota {
			break
		}
		if it.Features.CountryCode == preferred {
			selected[i] = true
			it.PutLabel("diversity", utils.Label{Value: "preferred_quota", Source: "rerank"})
			count++
		}
	}
	for i := range items {
		if count >= limit {
			break
		}
		if !selected[i] {
			selected[i] = true
			count++
		}
	}

	out := make([]*core.Item, 0, limit)
	for i, it := range items {
		if selected[i] {
			out = append(out, it)
		}
	}
	return out, nil
}

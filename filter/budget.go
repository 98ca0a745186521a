package filter

import (
	"context"
	"math"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/feature"
)

// BudgetFilter 按请求预算过滤：事件价格区间与 [Min, Max] 无交集时过滤。
// 设置了任一预算边界时，没有价格的事件也会被过滤。非有限值（NaN/Inf）的边界视为未设置。
type BudgetFilter struct {
	Min *float64
	Max *float64
}

func (f *BudgetFilter) Name() string {
	return "filter.budget"
}

func (f *BudgetFilter) Active() bool {
	return bound(f.Min) != nil || bound(f.Max) != nil
}

func bound(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

func (f *BudgetFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if !f.Active() {
		return false, nil
	}
	lo, hi := feature.PriceRange(item.Raw, item.Kind)
	if lo == nil {
		return true, nil
	}
	if min := bound(f.Min); min != nil && *hi < *min {
		return true, nil
	}
	if max := bound(f.Max); max != nil && *lo > *max {
		return true, nil
	}
	return false, nil
}

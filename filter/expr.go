package filter

import (
	"context"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pkg/dsl"
)

// ExprFilter 是基于 CEL 表达式的过滤器：表达式为 true 的候选被保留，其余过滤。
//
// 示例：
//   - `event.category == "Music"`
//   - `has(event.price) && event.price < 200.0`
//   - `event.country_code == rctx.preferred_country`
type ExprFilter struct {
	prg *dsl.Program
}

// NewExprFilter 编译表达式；表达式为空时返回 nil。
func NewExprFilter(expr string) (*ExprFilter, error) {
	if expr == "" {
		return nil, nil
	}
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	keep, err := f.prg.Eval(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}

package dsl

import (
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/juju/errors"

	"github.com/rushteam/eventrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	cache sync.Map // expr -> *Program
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("event", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("label", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("rctx", cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的过滤表达式，线程安全，可多次执行。
//
// 可用变量：
//   - event: id, kind, title, category, country_code, country, price（仅已知时存在）,
//     start（unix 秒，仅已知时存在）, keywords, score
//   - label: 候选上的 Label 值，如 label.recall_source
//   - rctx: user_id, preferred_country, now（unix 秒）, params
//
// 数值均为 double，字面量请写成 200.0 而不是 200。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，相同表达式只编译一次。
func Compile(expr string) (*Program, error) {
	if p, ok := cache.Load(expr); ok {
		return p.(*Program), nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, errors.Trace(err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Annotatef(issues.Err(), "compile %q", expr)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.Annotatef(err, "program %q", expr)
	}
	p := &Program{expr: expr, prg: prg}
	actual, _ := cache.LoadOrStore(expr, p)
	return actual.(*Program), nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对候选执行表达式。
func (p *Program) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, errors.Annotatef(err, "eval %q", p.expr)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("expression %q must return bool, got %T", p.expr, out.Value())
	}
	return result, nil
}

// Evaluate 编译（带缓存）并执行表达式；空表达式视为 true。
func Evaluate(expr string, item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if expr == "" {
		return true, nil
	}
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Eval(item, rctx)
}

func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	event := map[string]any{
		"id":           item.ID,
		"kind":         string(item.Kind),
		"title":        titleOf(item),
		"category":     item.Features.Category,
		"country_code": item.Features.CountryCode,
		"country":      item.Features.CountryName,
		"score":        item.Score,
		"keywords":     []string{},
	}
	if item.Features.Keywords != nil {
		event["keywords"] = item.Features.Keywords.ToSlice()
	}
	if item.Features.Price != nil {
		event["price"] = *item.Features.Price
	}
	if item.Start != nil {
		event["start"] = float64(item.Start.Unix())
	}

	labels := make(map[string]any, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = v.Value
	}

	rc := map[string]any{
		"user_id":           "",
		"preferred_country": "",
		"now":               float64(0),
		"params":            map[string]any{},
	}
	if rctx != nil {
		rc["user_id"] = rctx.UserID
		rc["preferred_country"] = rctx.Preferences().PreferredCountry
		rc["now"] = float64(rctx.Now.Unix())
		if rctx.Params != nil {
			rc["params"] = rctx.Params
		}
	}

	return map[string]any{
		"event": event,
		"label": labels,
		"rctx":  rc,
	}
}

func titleOf(item *core.Item) string {
	if item.Event != nil {
		return item.Event.Title
	}
	if item.Raw == nil {
		return ""
	}
	if s, ok := item.Raw["title"].(string); ok {
		return s
	}
	return ""
}

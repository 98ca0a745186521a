package pipeline

import (
	"context"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pkg/log"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链，前一个 Node 的输出是后一个的输入。
type Pipeline struct {
	Name  string
	Nodes []Node
}

// Run 依次执行所有 Node。ctx 被取消时在下一个 Node 之前返回 ctx.Err()。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, errors.Annotatef(err, "pipeline %s: node %s", p.Name, node.Name())
		}
		log.Logger().Debug("pipeline node done",
			zap.String("pipeline", p.Name),
			zap.String("node", node.Name()),
			zap.String("kind", string(node.Kind())),
			zap.Int("in", len(cur)),
			zap.Int("out", len(next)),
			zap.Duration("elapsed", time.Since(start)))
		cur = next
	}
	return cur, nil
}

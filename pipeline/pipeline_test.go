package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/eventrec/core"
)

func appendNode(id string) Node {
	return &NodeFunc{
		NodeName: "append." + id,
		NodeKind: KindRecall,
		Fn: func(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
			return append(items, core.NewItem(id, core.SourceExternal, nil)), nil
		},
	}
}

func TestPipelineRun(t *testing.T) {
	p := &Pipeline{Name: "test", Nodes: []Node{appendNode("a"), appendNode("b")}}
	items, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "b", items[1].ID)
}

func TestPipelineRunError(t *testing.T) {
	boom := errors.New("boom")
	failing := &NodeFunc{
		NodeName: "failing",
		NodeKind: KindRank,
		Fn: func(context.Context, *core.RecommendContext, []*core.Item) ([]*core.Item, error) {
			return nil, boom
		},
	}
	p := &Pipeline{Name: "test", Nodes: []Node{appendNode("a"), failing, appendNode("b")}}
	_, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
}

func TestPipelineRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Pipeline{Name: "test", Nodes: []Node{appendNode("a")}}
	_, err := p.Run(ctx, &core.RecommendContext{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

package filter

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pkg/conv"
)

func externalItem(id string, raw core.RawEvent) *core.Item {
	raw["id"] = id
	return core.NewItem(id, core.SourceExternal, raw)
}

func TestBudgetFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter BudgetFilter
		raw    core.RawEvent
		want   bool
	}{
		{name: "inactive", filter: BudgetFilter{}, raw: core.RawEvent{}, want: false},
		{name: "no price", filter: BudgetFilter{Max: conv.Float64(100)}, raw: core.RawEvent{}, want: true},
		{name: "overlap", filter: BudgetFilter{Min: conv.Float64(50), Max: conv.Float64(100)}, raw: core.RawEvent{"priceMin": 80, "priceMax": 150}, want: false},
		{name: "too cheap", filter: BudgetFilter{Min: conv.Float64(50)}, raw: core.RawEvent{"priceMin": 10, "priceMax": 40}, want: true},
		{name: "too expensive", filter: BudgetFilter{Max: conv.Float64(100)}, raw: core.RawEvent{"priceMin": 120}, want: true},
		{name: "only max price", filter: BudgetFilter{Max: conv.Float64(100)}, raw: core.RawEvent{"priceMax": 90}, want: false},
		{name: "nan bound ignored", filter: BudgetFilter{Max: conv.Float64(math.NaN())}, raw: core.RawEvent{}, want: false},
		{name: "inf bound ignored", filter: BudgetFilter{Min: conv.Float64(math.Inf(1)), Max: conv.Float64(100)}, raw: core.RawEvent{"priceMin": 20}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.filter.ShouldFilter(context.Background(), &core.RecommendContext{}, externalItem("e1", tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBudgetFilter_InternalFields(t *testing.T) {
	it := core.NewItem("e1", core.SourceInternal, core.RawEvent{"id": "e1", "price_min": 30.0})
	f := &BudgetFilter{Min: conv.Float64(50)}
	got, err := f.ShouldFilter(context.Background(), &core.RecommendContext{}, it)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter(`event.category == "Music"`)
	require.NoError(t, err)

	music := externalItem("e1", core.RawEvent{})
	music.Features.Category = "Music"
	sports := externalItem("e2", core.RawEvent{})
	sports.Features.Category = "Sports"

	node := &FilterNode{Filters: []Filter{f}}
	out, err := node.Process(context.Background(), &core.RecommendContext{}, []*core.Item{music, sports})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "e1", out[0].ID)
	assert.Equal(t, "filter.expr", sports.Labels["filtered"].Source)

	empty, err := NewExprFilter("")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = NewExprFilter("event.category ==")
	assert.Error(t, err)
}

func TestFilterNode_ErrorKeepsItem(t *testing.T) {
	// event.price 不存在时执行报错，候选保留
	f, err := NewExprFilter(`event.price < 10.0`)
	require.NoError(t, err)
	it := externalItem("e1", core.RawEvent{})

	out, err := (&FilterNode{Filters: []Filter{f}}).Process(context.Background(), &core.RecommendContext{}, []*core.Item{it, nil})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

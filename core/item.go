package core

import (
	"time"

	"github.com/rushteam/eventrec/pkg/utils"
)

// 分数分量的 key，写入 Item.Scores，便于解释与观测。
const (
	ScoreContent    = "content"
	ScoreContext    = "context"
	ScoreCF         = "cf"
	ScorePopularity = "popularity"
)

// Item 是推荐链路中的统一承载结构：原始记录、规范化特征、分数、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID   string
	Kind SourceKind

	// Raw 是事件源返回的原始记录；内部事件由 Event.Raw() 生成
	Raw RawEvent

	// Event 仅内部事件存在
	Event *Event
	Stats EventStats

	// 以下字段由 feature.ExtractNode 填充
	Features Features
	Start    *time.Time
	Lat      *float64
	Lon      *float64

	Score  float64
	Scores map[string]float64
	Labels map[string]utils.Label
}

func NewItem(id string, kind SourceKind, raw RawEvent) *Item {
	return &Item{
		ID:     id,
		Kind:   kind,
		Raw:    raw,
		Scores: make(map[string]float64),
		Labels: make(map[string]utils.Label),
	}
}

// NewEventItem 由内部事件构造 Item。
func NewEventItem(e *Event, stats EventStats) *Item {
	it := NewItem(e.ID, SourceInternal, e.Raw())
	it.Event = e
	it.Stats = stats
	return it
}

// SetScore 记录一个分数分量。
func (it *Item) SetScore(key string, v float64) {
	if it.Scores == nil {
		it.Scores = make(map[string]float64)
	}
	it.Scores[key] = v
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

package core

import "context"

// DefaultPageSize 是单次事件源查询的默认条数。
const DefaultPageSize = 20

// Query 是对事件源的一次查询，空字段表示不限。
type Query struct {
	Keyword     string
	Category    string
	CountryCode string
	PageSize    int
}

// EventSource 是外部事件源的领域接口，返回来源特定形态的原始记录。
// 调用可能失败或超时，调用方需要容忍。
type EventSource interface {
	Name() string
	Search(ctx context.Context, q Query) ([]RawEvent, error)
}

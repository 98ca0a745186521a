package core

import (
	"context"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// DefaultFilterLimit 是内部候选查询的默认上限。
const DefaultFilterLimit = 500

// EventFilter 是内部事件的候选过滤条件，零值字段表示不限。
type EventFilter struct {
	// From/To 限定开始时间窗口
	From *time.Time
	To   *time.Time
	// Categories 非空时仅保留这些类别
	Categories []string
	// PriceMin/PriceMax 限定事件最低价；没有价格的事件保留
	PriceMin *float64
	PriceMax *float64
}

// Repository 是持久化的领域接口，由 repository 包基于 KeyValueStore 实现。
type Repository interface {
	GetUser(ctx context.Context, id string) (*User, error)
	// SaveUser 版本化写入：u.Version 必须等于存储中的版本，成功后 u.Version 自增。
	// 版本不一致返回 ErrVersionConflict。
	SaveUser(ctx context.Context, u *User) error

	GetEvent(ctx context.Context, id string) (*Event, error)
	SaveEvent(ctx context.Context, e *Event) error
	FindEventByProvider(ctx context.Context, provider, providerID string) (*Event, error)
	FindEventsByFilter(ctx context.Context, f EventFilter, limit int) ([]*Event, error)

	GetEventStats(ctx context.Context, ids []string) (map[string]EventStats, error)
	// IncrEventStats 在一次事务中对各字段做增量，不会只提交其中一部分字段
	IncrEventStats(ctx context.Context, id string, delta EventStats) error

	AppendInteraction(ctx context.Context, in *Interaction) error
	ListInteractions(ctx context.Context, userID string, limit int) ([]*Interaction, error)

	GetFeedback(ctx context.Context, userID, eventID string) (*Feedback, error)
	SaveFeedback(ctx context.Context, fb *Feedback) error
	ListFeedback(ctx context.Context, eventID string) ([]*Feedback, error)

	// FindRatedEventIDs 返回用户评分 >= minRating 的事件
	FindRatedEventIDs(ctx context.Context, userID string, minRating int) (mapset.Set[string], error)
	// FindNeighborRatings 找到对 eventIDs 中任一事件评分 >= minRating 的其他用户（邻居），
	// 返回每个事件被多少个邻居评分 >= minRating。
	FindNeighborRatings(ctx context.Context, eventIDs []string, excludeUser string, minRating int) (map[string]int, error)
}

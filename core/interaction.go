package core

import "time"

// InteractionType 是交互日志的类型。
type InteractionType string

const (
	InteractionSearch InteractionType = "search"
	InteractionClick  InteractionType = "click"
	InteractionRated  InteractionType = "rated"
	InteractionView   InteractionType = "view"
)

// Interaction 是追加写入的用户交互日志，写入后不再修改或删除。
type Interaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      InteractionType `json:"type"`
	EventRef  string          `json:"event_ref,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Feedback 是用户对事件的评分记录，每个 (user, event) 唯一。
// 重新评分时原地更新，并替换上一次评分对聚合值的贡献。
type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	MinRating = 1
	MaxRating = 5
	// LikedRating 是 CF-lite 中“喜欢”的评分阈值
	LikedRating = 4
)

// ValidRating 检查评分是否在 [1, 5] 内。
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

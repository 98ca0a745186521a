package repository

// key 布局：
//
//	user:{id}                          用户 JSON（含版本号）
//	event:{id}                         事件 JSON
//	event:provider:{provider}:{pid}    事件源记录 -> 事件 id
//	event:stats:{id}                   事件聚合计数（hash）
//	events:by_start                    事件按开始时间索引（zset，分数为 unix 秒）
//	feedback:{uid}:{eid}               评分 JSON
//	ratings:user:{uid}                 用户评分索引（hash，eid -> rating）
//	ratings:event:{eid}                事件评分索引（hash，uid -> rating）
//	interactions:{uid}                 交互日志（zset，分数为 unix 纳秒）
const (
	prefixUser         = "user:"
	prefixEvent        = "event:"
	prefixProvider     = "event:provider:"
	prefixStats        = "event:stats:"
	keyEventsByStart   = "events:by_start"
	prefixFeedback     = "feedback:"
	prefixUserRatings  = "ratings:user:"
	prefixEventRatings = "ratings:event:"
	prefixInteractions = "interactions:"
)

// stats hash 字段
const (
	fieldRatingSum     = "rating_sum"
	fieldRatingCount   = "rating_count"
	fieldClickCount    = "click_count"
	fieldBookmarkCount = "bookmark_count"
)

func userKey(id string) string                { return prefixUser + id }
func eventKey(id string) string               { return prefixEvent + id }
func providerKey(provider, pid string) string { return prefixProvider + provider + ":" + pid }
func statsKey(id string) string               { return prefixStats + id }
func feedbackKey(uid, eid string) string      { return prefixFeedback + uid + ":" + eid }
func userRatingsKey(uid string) string        { return prefixUserRatings + uid }
func eventRatingsKey(eid string) string       { return prefixEventRatings + eid }
func interactionsKey(uid string) string       { return prefixInteractions + uid }

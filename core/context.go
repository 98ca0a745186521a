package core

import (
	"time"

	"github.com/rushteam/eventrec/pkg/utils"
)

// DefaultMaxDistanceKm 是用户未设置最大距离时的地理邻近半径。
const DefaultMaxDistanceKm = 50.0

// RecommendContext 承载用户/请求时间/结果数量等信息，贯穿整个 Pipeline 透传。
// 排序过程只读取 User，不会修改偏好状态。
type RecommendContext struct {
	UserID string
	User   *User

	// Now 是本次请求的参考时间，时间邻近度以此计算
	Now time.Time

	// Limit 是请求的结果数量
	Limit int

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数，例如 CEL 过滤表达式中可引用的 query 等
	Params map[string]any
}

// Preferences 返回用户偏好；用户不存在时返回空偏好。
func (rctx *RecommendContext) Preferences() *Preferences {
	if rctx.User == nil {
		return &Preferences{}
	}
	return &rctx.User.Preferences
}

// Location 返回用户坐标；任一缺失时 ok 为 false。
func (rctx *RecommendContext) Location() (lat, lon float64, ok bool) {
	if rctx.User == nil || rctx.User.Lat == nil || rctx.User.Lon == nil {
		return 0, 0, false
	}
	return *rctx.User.Lat, *rctx.User.Lon, true
}

// MaxDistanceKm 返回地理邻近半径，未设置时为 DefaultMaxDistanceKm。
func (rctx *RecommendContext) MaxDistanceKm() float64 {
	if rctx.User != nil && rctx.User.Preferences.MaxDistanceKm > 0 {
		return rctx.User.Preferences.MaxDistanceKm
	}
	return DefaultMaxDistanceKm
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

package feature

import (
	"time"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pkg/conv"
)

// StartTime 解析记录的开始时间，无法解析时返回 nil。
// 内部记录使用 start_utc；外部记录优先使用 start，其次 date + time。
func StartTime(raw core.RawEvent, kind core.SourceKind) *time.Time {
	if raw == nil {
		return nil
	}
	if kind == core.SourceInternal {
		if t, ok := conv.ToTime(raw["start_utc"]); ok {
			return &t
		}
		return nil
	}
	if t, ok := conv.ToTime(raw["start"]); ok {
		return &t
	}
	date := conv.String(raw, "date")
	if date == "" {
		return nil
	}
	if clock := conv.String(raw, "time"); clock != "" {
		if t, ok := conv.ToTime(date + "T" + clock); ok {
			return &t
		}
	}
	if t, ok := conv.ToTime(date); ok {
		return &t
	}
	return nil
}

// Coordinates 解析记录的经纬度，任一缺失或越界时返回 nil, nil。
func Coordinates(raw core.RawEvent) (lat, lon *float64) {
	if raw == nil {
		return nil, nil
	}
	la, okLat := conv.ToFloat64(raw["lat"])
	lo, okLon := conv.ToFloat64(raw["lon"])
	if !okLat || !okLon || la < -90 || la > 90 || lo < -180 || lo > 180 {
		return nil, nil
	}
	return &la, &lo
}

// Package conv 提供原始记录字段的类型转换工具。
// 事件源返回的记录来自 JSON/YAML 解析，数字可能是 int/float64/字符串，时间可能是 time.Time 或字符串。
package conv

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ToFloat64 将 any 转为 float64。
// 支持各类整数/浮点、json.Number 以及可解析为数字的字符串；NaN/Inf 视为无效。
func ToFloat64(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case int32:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToFloat64Ptr 同 ToFloat64，无效时返回 nil。
func ToFloat64Ptr(v any) *float64 {
	f, ok := ToFloat64(v)
	if !ok {
		return nil
	}
	return &f
}

// ToString 将 any 转为去除首尾空白的 string。
// 仅支持 string 类型，否则返回 ("", false)。
func ToString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// String 返回 m[key] 的字符串值，取不到时返回空。
func String(m map[string]any, key string) string {
	s, _ := ToString(m[key])
	return s
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToTime 将 any 转为 UTC 时间。支持 time.Time、*time.Time 以及常见格式的字符串。
func ToTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), !val.IsZero()
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return val.UTC(), !val.IsZero()
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// Float64 返回指向 v 的指针。
func Float64(v float64) *float64 {
	return &v
}

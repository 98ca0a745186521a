package rank

import (
	"sort"

	"github.com/rushteam/eventrec/core"
)

// SortItems 按 Score 降序稳定排序；分数相同按开始时间升序（未知开始时间排后），再按输入顺序。
// nil 元素被移除。
func SortItems(items []*core.Item) []*core.Item {
	out := compact(items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		switch {
		case a.Start == nil:
			return false
		case b.Start == nil:
			return true
		default:
			return a.Start.Before(*b.Start)
		}
	})
	return out
}

func compact(items []*core.Item) []*core.Item {
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}
	return out
}

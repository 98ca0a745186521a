package rank

import (
	"math"

	"github.com/rushteam/eventrec/core"
)

// PopularityWeights 是流行度分的系数。
type PopularityWeights struct {
	Rating        float64 `mapstructure:"rating"`
	Click         float64 `mapstructure:"click"`
	ClickScale    float64 `mapstructure:"click_scale"`
	Bookmark      float64 `mapstructure:"bookmark"`
	BookmarkScale float64 `mapstructure:"bookmark_scale"`
}

// DefaultPopularityWeights 返回默认系数。
func DefaultPopularityWeights() PopularityWeights {
	return PopularityWeights{Rating: 0.6, Click: 0.2, ClickScale: 10, Bookmark: 0.2, BookmarkScale: 5}
}

// Score 计算 Rating*avg/5 + Click*tanh(clicks/ClickScale) + Bookmark*tanh(bookmarks/BookmarkScale)。
func (w PopularityWeights) Score(s core.EventStats) float64 {
	score := w.Rating * s.AvgRating() / core.MaxRating
	if w.ClickScale > 0 {
		score += w.Click * math.Tanh(s.ClickCount/w.ClickScale)
	}
	if w.BookmarkScale > 0 {
		score += w.Bookmark * math.Tanh(s.BookmarkCount/w.BookmarkScale)
	}
	return score
}

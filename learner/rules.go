package learner

import (
	"math"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/feature"
)

// Rates 是各类信号的学习率。
type Rates struct {
	SearchKeyword  float64 `mapstructure:"search_keyword"`
	SearchCategory float64 `mapstructure:"search_category"`
	SearchCountry  float64 `mapstructure:"search_country"`
	SearchDecay    float64 `mapstructure:"search_decay"`

	ClickCategory float64 `mapstructure:"click_category"`
	ClickCountry  float64 `mapstructure:"click_country"`
	ClickKeyword  float64 `mapstructure:"click_keyword"`
	ClickDecay    float64 `mapstructure:"click_decay"`

	RatingLiked    float64 `mapstructure:"rating_liked"`
	RatingNeutral  float64 `mapstructure:"rating_neutral"`
	RatingDisliked float64 `mapstructure:"rating_disliked"`
	// RatingKeyword 是评分权重作用到标题关键词时的系数
	RatingKeyword float64 `mapstructure:"rating_keyword"`

	// PriceAlpha 是预算 EMA 中新观测值的权重
	PriceAlpha float64 `mapstructure:"price_alpha"`
	MinPrice   float64 `mapstructure:"min_price"`
	MaxPrice   float64 `mapstructure:"max_price"`
}

// DefaultRates 返回默认学习率。
func DefaultRates() Rates {
	return Rates{
		SearchKeyword:  0.3,
		SearchCategory: 0.5,
		SearchCountry:  0.4,
		SearchDecay:    0.97,
		ClickCategory:  1.0,
		ClickCountry:   0.7,
		ClickKeyword:   0.5,
		ClickDecay:     0.98,
		RatingLiked:    1.5,
		RatingNeutral:  0.5,
		RatingDisliked: -0.5,
		RatingKeyword:  0.3,
		PriceAlpha:     0.3,
		MinPrice:       0,
		MaxPrice:       100000,
	}
}

// SearchSignal 是一次搜索行为。
type SearchSignal struct {
	Query    string   `json:"query"`
	Category string   `json:"category"`
	Country  string   `json:"country"`
	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`
}

// ClickSignal 是一次点击行为。EventID 指向内部事件，ExternalID 指向事件源记录。
type ClickSignal struct {
	EventID    string `json:"event_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	Source     string `json:"source,omitempty"`
	Title      string `json:"title"`
	URL        string `json:"url,omitempty"`
	Category   string `json:"category"`
	Country    string `json:"country"`
}

// Mirror 描述一次更新后需要投影到显式字段的学习结果，空值表示不投影。
type Mirror struct {
	Category string
	Country  string
}

// Project 把学习结果单向投影到 Categories / PreferredCountry。
// 显式字段只由此函数随学习更新写入。
func Project(p *core.Preferences, m Mirror) {
	if m.Category != "" {
		p.Categories = []string{m.Category}
	}
	if m.Country != "" {
		p.PreferredCountry = m.Country
	}
}

// ApplySearch 按搜索信号更新偏好，返回需要投影的结果。
func ApplySearch(p *core.Preferences, s SearchSignal, r Rates) Mirror {
	p.EnsureMaps()
	var m Mirror
	for _, tok := range feature.Tokenize(s.Query) {
		p.KeywordScores[tok] += r.SearchKeyword
	}
	if cat := core.NormalizeCategory(s.Category); cat != "" {
		p.CategoryScores[cat] += r.SearchCategory
		m.Category = cat
	}
	if code := core.NormalizeCountry(s.Country); code != "" {
		reinforceCountry(p, code, r.SearchCountry, r.SearchDecay)
		m.Country = code
	}
	if v, ok := clampPrice(s.PriceMin, r); ok {
		p.PriceMin = smooth(p.PriceMin, v, r.PriceAlpha)
	}
	if v, ok := clampPrice(s.PriceMax, r); ok {
		p.PriceMax = smooth(p.PriceMax, v, r.PriceAlpha)
	}
	return m
}

// ApplyClick 按点击信号更新偏好。
func ApplyClick(p *core.Preferences, c ClickSignal, r Rates) Mirror {
	p.EnsureMaps()
	var m Mirror
	if cat := core.NormalizeCategory(c.Category); cat != "" {
		p.CategoryScores[cat] += r.ClickCategory
		m.Category = cat
	}
	if code := core.NormalizeCountry(c.Country); code != "" {
		reinforceCountry(p, code, r.ClickCountry, r.ClickDecay)
		m.Country = code
	}
	for _, tok := range feature.Tokenize(c.Title) {
		p.KeywordScores[tok] += r.ClickKeyword
	}
	return m
}

// RatingWeight 返回评分对应的学习权重。
func RatingWeight(rating int, r Rates) float64 {
	switch {
	case rating >= 4:
		return r.RatingLiked
	case rating == 3:
		return r.RatingNeutral
	default:
		return r.RatingDisliked
	}
}

// ApplyRating 按评分更新偏好。只有正向权重才投影类别。
func ApplyRating(p *core.Preferences, e *core.Event, rating int, r Rates) Mirror {
	p.EnsureMaps()
	var m Mirror
	w := RatingWeight(rating, r)
	cat := e.Category
	if cat == "" {
		cat = core.DefaultCategory
	}
	p.CategoryScores[cat] += w
	if w > 0 {
		m.Category = cat
	}
	for _, tok := range feature.Tokenize(e.Title) {
		p.KeywordScores[tok] += w * r.RatingKeyword
	}
	return m
}

// reinforceCountry 给 code 加权，并衰减其他国家。
func reinforceCountry(p *core.Preferences, code string, delta, decay float64) {
	p.CountryScores[code] += delta
	for k := range p.CountryScores {
		if k != code {
			p.CountryScores[k] *= decay
		}
	}
}

// clampPrice 丢弃未设置、非有限值（NaN/Inf）以及超出 [MinPrice, MaxPrice] 的价格。
func clampPrice(v *float64, r Rates) (float64, bool) {
	if !finite(v) || *v < r.MinPrice || *v > r.MaxPrice {
		return 0, false
	}
	return *v, true
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// smooth 计算 EMA：old*(1-alpha) + v*alpha；old 未设置时直接取 v。
func smooth(old *float64, v, alpha float64) *float64 {
	if old == nil {
		return &v
	}
	next := *old*(1-alpha) + v*alpha
	return &next
}

package model

import (
	"math"

	"github.com/rushteam/eventrec/core"
)

// ScoringModel 是个性化打分的最小抽象：输入用户偏好与事件特征，输出一个可比较的分数。
// 分数只用于同一次排序内的相对比较，不跨用户、不跨时间比较。
type ScoringModel interface {
	Name() string
	Score(prefs *core.Preferences, f core.Features) float64
}

// Weights 是偏好模型各项的系数。
type Weights struct {
	// OverrideMatch/OverrideMismatch 是硬性国家偏好命中/未命中时的加分
	OverrideMatch    float64 `mapstructure:"override_match"`
	OverrideMismatch float64 `mapstructure:"override_mismatch"`
	Category         float64 `mapstructure:"category"`
	// Country 必须小于 OverrideMatch，硬性偏好才能占主导
	Country float64 `mapstructure:"country"`
	// 关键词项：min(sum/KeywordCap, 1) * Keyword
	Keyword    float64 `mapstructure:"keyword"`
	KeywordCap float64 `mapstructure:"keyword_cap"`
}

// DefaultWeights 返回默认系数。
func DefaultWeights() Weights {
	return Weights{
		OverrideMatch:    3.0,
		OverrideMismatch: -0.5,
		Category:         1.0,
		Country:          0.4,
		Keyword:          0.8,
		KeywordCap:       5,
	}
}

// Terms 是一次打分的各项分量，便于解释。
type Terms struct {
	Override float64 `json:"override"`
	Category float64 `json:"category"`
	Country  float64 `json:"country"`
	Keyword  float64 `json:"keyword"`
	Price    float64 `json:"price"`
}

// Sum 返回各项之和。
func (t Terms) Sum() float64 {
	return t.Override + t.Category + t.Country + t.Keyword + t.Price
}

// PreferenceModel 是基于偏好权重表的线性打分模型：score = w · x。
// 纯函数，永不失败；缺失的输入对应分量为 0。
type PreferenceModel struct {
	Weights Weights
}

func NewPreferenceModel() *PreferenceModel {
	return &PreferenceModel{Weights: DefaultWeights()}
}

func (m *PreferenceModel) Name() string { return "preference" }

func (m *PreferenceModel) Score(prefs *core.Preferences, f core.Features) float64 {
	return m.Terms(prefs, f).Sum()
}

// Terms 计算各项分量。
func (m *PreferenceModel) Terms(prefs *core.Preferences, f core.Features) Terms {
	var t Terms
	if prefs == nil {
		return t
	}
	w := m.Weights

	if prefs.PreferredCountry != "" && f.CountryCode != "" {
		if prefs.PreferredCountry == f.CountryCode {
			t.Override = w.OverrideMatch
		} else {
			t.Override = w.OverrideMismatch
		}
	}

	t.Category = w.Category * prefs.CategoryScores[f.Category]

	if f.CountryCode != "" {
		t.Country = w.Country * prefs.CountryScores[f.CountryCode]
	}

	if f.Keywords != nil && len(prefs.KeywordScores) > 0 {
		sum := 0.0
		f.Keywords.Each(func(kw string) bool {
			sum += prefs.KeywordScores[kw]
			return false
		})
		if sum > 0 && w.KeywordCap > 0 {
			t.Keyword = math.Min(sum/w.KeywordCap, 1) * w.Keyword
		}
	}

	t.Price = PriceFit(prefs.PriceMin, prefs.PriceMax, f.Price)
	return t
}

// PriceFit 计算价格与用户预算区间的匹配度：区间中点为 +1，区间边缘及以外为 -1。
// 未设置的边界视为 0；区间无效（max <= min）或价格未知时为 0。
func PriceFit(min, max, price *float64) float64 {
	lo, hi := deref(min), deref(max)
	if price == nil || hi <= lo {
		return 0
	}
	p := math.Max(lo, math.Min(hi, *price))
	mid := (lo + hi) / 2
	// 0 表示在中点，0.5 表示在边缘
	distance := math.Abs(p-mid) / (hi - lo)
	return 1 - 4*distance
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

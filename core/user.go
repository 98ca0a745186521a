package core

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

var iso2Pattern = regexp.MustCompile(`^[A-Z]{2}$`)

// User 是用户记录，偏好状态归属于该用户。
// Version 用于乐观并发控制：SaveUser 仅在存储中的版本与其一致时成功。
type User struct {
	ID          string      `json:"id"`
	Name        string      `json:"name,omitempty"`
	Email       string      `json:"email,omitempty"`
	City        string      `json:"city,omitempty"`
	Lat         *float64    `json:"lat,omitempty"`
	Lon         *float64    `json:"lon,omitempty"`
	Preferences Preferences `json:"preferences"`
	Version     int64       `json:"version"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func NewUser(id string) *User {
	u := &User{ID: id}
	u.Preferences.EnsureMaps()
	return u
}

// Preferences 是用户的偏好状态：学习得到的权重表 + 显式设置。
//
// 约定：
//   - 所有 key 都是规范化后的（关键词小写；国家为 ^[A-Z]{2}$ 的大写代码）
//   - "WORLD"/"ALL"/"GLOBAL" 表示不限国家，不会作为 key 存储
//   - PriceMin <= PriceMax 不强制，价格匹配计算需要容忍违反的情况
type Preferences struct {
	// 显式设置
	Categories       []string   `json:"categories"`
	Location         string     `json:"location,omitempty"`
	MaxDistanceKm    float64    `json:"max_distance_km,omitempty"`
	PriceMin         *float64   `json:"price_min,omitempty"`
	PriceMax         *float64   `json:"price_max,omitempty"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	PreferredCountry string     `json:"preferred_country,omitempty"`

	// 学习得到的权重
	CategoryScores map[string]float64 `json:"category_scores"`
	CountryScores  map[string]float64 `json:"country_scores"`
	KeywordScores  map[string]float64 `json:"keyword_scores"`
}

// EnsureMaps 保证三个权重表都已初始化。
func (p *Preferences) EnsureMaps() {
	if p.CategoryScores == nil {
		p.CategoryScores = make(map[string]float64)
	}
	if p.CountryScores == nil {
		p.CountryScores = make(map[string]float64)
	}
	if p.KeywordScores == nil {
		p.KeywordScores = make(map[string]float64)
	}
}

// TopCategory 返回权重最高的类别；权重表为空时退回第一个显式类别，否则为空。
// 权重相同时取字典序最小者，保证结果确定。
func (p *Preferences) TopCategory() string {
	best, bestScore := "", math.Inf(-1)
	for k, v := range p.CategoryScores {
		if v > bestScore || (v == bestScore && k < best) {
			best, bestScore = k, v
		}
	}
	if best != "" {
		return best
	}
	if len(p.Categories) > 0 {
		return p.Categories[0]
	}
	return ""
}

// Prune 删除三个权重表中绝对值小于 minAbs 的 key，返回删除数量。
// 权重表本身不做容量限制，由调用方按需触发。
func (p *Preferences) Prune(minAbs float64) int {
	removed := 0
	for _, m := range []map[string]float64{p.CategoryScores, p.CountryScores, p.KeywordScores} {
		for k, v := range m {
			if math.Abs(v) < minAbs {
				delete(m, k)
				removed++
			}
		}
	}
	return removed
}

// Size 返回三个权重表的 key 总数。
func (p *Preferences) Size() int {
	return len(p.CategoryScores) + len(p.CountryScores) + len(p.KeywordScores)
}

// NormalizeCountry 规范化国家代码。"WORLD"/"ALL"/"GLOBAL"、空值以及不是两位字母代码的输入都返回空。
func NormalizeCountry(s string) string {
	code := strings.ToUpper(strings.TrimSpace(s))
	switch code {
	case "", "WORLD", "ALL", "GLOBAL":
		return ""
	}
	if !iso2Pattern.MatchString(code) {
		return ""
	}
	return code
}

// NormalizeCategory 规范化类别名。"All" 表示不限类别，返回空。
func NormalizeCategory(s string) string {
	c := strings.TrimSpace(s)
	if strings.EqualFold(c, "all") {
		return ""
	}
	return c
}

// NormalizeToken 规范化关键词。
func NormalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SortedKeys 按权重降序返回 key，权重相同按字典序。
func SortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

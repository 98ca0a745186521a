package core

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// SourceKind 标记事件记录的来源形态，决定特征抽取时使用的字段名。
type SourceKind string

const (
	SourceInternal SourceKind = "internal" // 本地存储的事件（price_min / price_max）
	SourceExternal SourceKind = "external" // 事件源实时返回的记录（priceMin / priceMax）
)

// DefaultCategory 是事件未设置类别时的默认值。
const DefaultCategory = "Other"

// RawEvent 是事件源返回的原始记录，字段形态随来源不同而不同。
type RawEvent map[string]any

// ID 返回记录的 id 字段。
func (r RawEvent) ID() string {
	if s, ok := r["id"].(string); ok {
		return s
	}
	return ""
}

// Event 是内部存储的事件记录。
type Event struct {
	ID          string     `json:"id"`
	Provider    string     `json:"provider"`
	ProviderID  string     `json:"provider_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartUTC    *time.Time `json:"start_utc,omitempty"`
	EndUTC      *time.Time `json:"end_utc,omitempty"`
	VenueName   string     `json:"venue_name,omitempty"`
	City        string     `json:"city,omitempty"`
	Country     string     `json:"country,omitempty"`
	CountryCode string     `json:"country_code,omitempty"`
	Lat         *float64   `json:"lat,omitempty"`
	Lon         *float64   `json:"lon,omitempty"`
	Category    string     `json:"category,omitempty"`
	PriceMin    *float64   `json:"price_min,omitempty"`
	PriceMax    *float64   `json:"price_max,omitempty"`
	URL         string     `json:"url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Raw 将内部事件转换为内部记录形态，供特征抽取使用。
func (e *Event) Raw() RawEvent {
	raw := RawEvent{
		"id":          e.ID,
		"provider":    e.Provider,
		"event_id":    e.ProviderID,
		"title":       e.Title,
		"description": e.Description,
		"venue_name":  e.VenueName,
		"city":        e.City,
		"country":     e.Country,
		"countryCode": e.CountryCode,
		"category":    e.Category,
		"url":         e.URL,
	}
	if e.StartUTC != nil {
		raw["start_utc"] = *e.StartUTC
	}
	if e.EndUTC != nil {
		raw["end_utc"] = *e.EndUTC
	}
	if e.Lat != nil {
		raw["lat"] = *e.Lat
	}
	if e.Lon != nil {
		raw["lon"] = *e.Lon
	}
	if e.PriceMin != nil {
		raw["price_min"] = *e.PriceMin
	}
	if e.PriceMax != nil {
		raw["price_max"] = *e.PriceMax
	}
	return raw
}

// EventStats 是事件的聚合计数，每个字段独立、原子地增量更新。
type EventStats struct {
	RatingSum     float64 `json:"rating_sum"`
	RatingCount   float64 `json:"rating_count"`
	ClickCount    float64 `json:"click_count"`
	BookmarkCount float64 `json:"bookmark_count"`
}

// AvgRating 返回平均评分，无评分时为 0。
func (s EventStats) AvgRating() float64 {
	if s.RatingCount <= 0 {
		return 0
	}
	return s.RatingSum / s.RatingCount
}

// Features 是规范化的事件特征，与来源无关，仅在请求内使用，不持久化。
type Features struct {
	Category string
	// CountryCode 为空表示未知；只来自显式的 ISO2 字段
	CountryCode string
	// CountryName 仅用于展示，不参与国家匹配
	CountryName string
	Price       *float64
	Keywords    mapset.Set[string]
}

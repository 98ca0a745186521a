package feature

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pkg/conv"
)

// Extractor 把一条原始事件记录映射为规范化特征，采用策略模式：
// 不同来源的记录字段名不同，由 Fields 描述。
//
// Extract 永不失败：缺失字段得到空值，类别缺省为 core.DefaultCategory。
type Extractor interface {
	Name() string
	Extract(raw core.RawEvent) core.Features
}

// Fields 描述一种来源的字段名。
type Fields struct {
	Category    string
	CountryCode string
	CountryName string
	PriceMin    string
	PriceMax    string
	Title       string
	Description string
}

var (
	// InternalFields 是内部存储事件的字段名
	InternalFields = Fields{
		Category:    "category",
		CountryCode: "countryCode",
		CountryName: "country",
		PriceMin:    "price_min",
		PriceMax:    "price_max",
		Title:       "title",
		Description: "description",
	}
	// ExternalFields 是事件源实时记录的字段名
	ExternalFields = Fields{
		Category:    "category",
		CountryCode: "countryCode",
		CountryName: "country",
		PriceMin:    "priceMin",
		PriceMax:    "priceMax",
		Title:       "title",
		Description: "description",
	}
)

// FieldExtractor 是基于字段映射的 Extractor 实现。
type FieldExtractor struct {
	name            string
	fields          Fields
	defaultCategory string
}

// ExtractorOption 抽取器配置选项
type ExtractorOption func(*FieldExtractor)

// WithDefaultCategory 设置缺省类别
func WithDefaultCategory(category string) ExtractorOption {
	return func(e *FieldExtractor) {
		e.defaultCategory = category
	}
}

// WithFields 覆盖字段映射
func WithFields(fields Fields) ExtractorOption {
	return func(e *FieldExtractor) {
		e.fields = fields
	}
}

// NewExtractor 按来源类型创建抽取器。
func NewExtractor(kind core.SourceKind, opts ...ExtractorOption) *FieldExtractor {
	e := &FieldExtractor{
		name:            string(kind),
		fields:          ExternalFields,
		defaultCategory: core.DefaultCategory,
	}
	if kind == core.SourceInternal {
		e.fields = InternalFields
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *FieldExtractor) Name() string { return e.name }

func (e *FieldExtractor) Extract(raw core.RawEvent) core.Features {
	f := core.Features{
		Category: e.defaultCategory,
		Keywords: mapset.NewThreadUnsafeSet[string](),
	}
	if raw == nil {
		return f
	}
	if c := conv.String(raw, e.fields.Category); c != "" {
		f.Category = c
	}
	// 国家代码只来自显式 ISO2 字段；国家名仅用于展示
	f.CountryCode = core.NormalizeCountry(conv.String(raw, e.fields.CountryCode))
	f.CountryName = conv.String(raw, e.fields.CountryName)

	if p := conv.ToFloat64Ptr(raw[e.fields.PriceMin]); p != nil {
		f.Price = p
	} else {
		f.Price = conv.ToFloat64Ptr(raw[e.fields.PriceMax])
	}

	f.Keywords = Keywords(conv.String(raw, e.fields.Title), conv.String(raw, e.fields.Description))
	return f
}

var extractors = map[core.SourceKind]Extractor{
	core.SourceInternal: NewExtractor(core.SourceInternal),
	core.SourceExternal: NewExtractor(core.SourceExternal),
}

// Extract 使用默认抽取器抽取特征，未知来源按外部记录处理。
func Extract(raw core.RawEvent, kind core.SourceKind) core.Features {
	e, ok := extractors[kind]
	if !ok {
		e = extractors[core.SourceExternal]
	}
	return e.Extract(raw)
}

// FieldsFor 返回来源对应的字段映射。
func FieldsFor(kind core.SourceKind) Fields {
	if kind == core.SourceInternal {
		return InternalFields
	}
	return ExternalFields
}

// PriceRange 返回原始记录的价格区间；只有一端时另一端取相同值。
func PriceRange(raw core.RawEvent, kind core.SourceKind) (lo, hi *float64) {
	if raw == nil {
		return nil, nil
	}
	fields := FieldsFor(kind)
	lo = conv.ToFloat64Ptr(raw[fields.PriceMin])
	hi = conv.ToFloat64Ptr(raw[fields.PriceMax])
	if lo == nil {
		lo = hi
	}
	if hi == nil {
		hi = lo
	}
	return lo, hi
}

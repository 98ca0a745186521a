package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/feature"
	"github.com/rushteam/eventrec/pkg/conv"
	"github.com/rushteam/eventrec/pkg/log"
)

// ImportResult 统计一次导入的结果。
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ImportEvents 从事件源拉取记录并按 (provider, provider_id) 写入本地存储。
func (s *Service) ImportEvents(ctx context.Context, src core.EventSource, q core.Query) (*ImportResult, error) {
	raws, err := src.Search(ctx, q)
	if err != nil {
		return nil, errors.Annotatef(err, "import from %s", src.Name())
	}
	return s.ImportRaw(ctx, src.Name(), raws)
}

// ImportRaw 写入外部记录：已存在的 (provider, provider_id) 更新内容并保留 ID 与创建时间。
// 没有 id 的记录被跳过。
func (s *Service) ImportRaw(ctx context.Context, provider string, raws []core.RawEvent) (*ImportResult, error) {
	res := &ImportResult{}
	now := s.now().UTC()
	for _, raw := range raws {
		e := EventFromRaw(raw, provider)
		if e == nil {
			res.Skipped++
			continue
		}
		old, err := s.repo.FindEventByProvider(ctx, e.Provider, e.ProviderID)
		switch {
		case core.IsNotFound(err):
			e.ID = uuid.NewString()
			e.CreatedAt = now
			res.Created++
		case err != nil:
			return res, errors.Trace(err)
		default:
			e.ID = old.ID
			e.CreatedAt = old.CreatedAt
			res.Updated++
		}
		e.UpdatedAt = now
		if err := s.repo.SaveEvent(ctx, e); err != nil {
			return res, errors.Annotatef(err, "save event %s/%s", e.Provider, e.ProviderID)
		}
	}
	log.Logger().Info("events imported",
		zap.String("provider", provider),
		zap.Int("created", res.Created),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// EventFromRaw 把事件源记录转换为内部事件；记录没有 id 时返回 nil。
// 记录自带 provider 字段时优先使用。
func EventFromRaw(raw core.RawEvent, provider string) *core.Event {
	id := conv.String(raw, "id")
	if id == "" {
		return nil
	}
	if p := conv.String(raw, "provider"); p != "" {
		provider = p
	}
	f := feature.Extract(raw, core.SourceExternal)
	lat, lon := feature.Coordinates(raw)
	e := &core.Event{
		Provider:    provider,
		ProviderID:  id,
		Title:       conv.String(raw, "title"),
		Description: conv.String(raw, "description"),
		StartUTC:    feature.StartTime(raw, core.SourceExternal),
		VenueName:   conv.String(raw, "venueName"),
		City:        conv.String(raw, "city"),
		Country:     f.CountryName,
		CountryCode: f.CountryCode,
		Lat:         lat,
		Lon:         lon,
		Category:    f.Category,
		PriceMin:    conv.ToFloat64Ptr(raw["priceMin"]),
		PriceMax:    conv.ToFloat64Ptr(raw["priceMax"]),
		URL:         conv.String(raw, "url"),
	}
	if end, ok := conv.ToTime(raw["end"]); ok {
		e.EndUTC = &end
	}
	return e
}

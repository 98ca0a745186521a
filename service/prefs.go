package service

import (
	"context"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/samber/lo"

	"github.com/rushteam/eventrec/core"
)

// PreferenceUpdate 是用户的显式偏好设置，nil 字段表示不修改。
type PreferenceUpdate struct {
	Categories       []string   `json:"categories,omitempty"`
	Location         *string    `json:"location,omitempty"`
	MaxDistanceKm    *float64   `json:"max_distance_km,omitempty"`
	PriceMin         *float64   `json:"price_min,omitempty"`
	PriceMax         *float64   `json:"price_max,omitempty"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	PreferredCountry *string    `json:"preferred_country,omitempty"`
	Lat              *float64   `json:"lat,omitempty"`
	Lon              *float64   `json:"lon,omitempty"`
	City             *string    `json:"city,omitempty"`
}

// Apply 把设置写入用户。"All" 类别与 WORLD/ALL/GLOBAL 国家表示不限，不会被保存。
func (up PreferenceUpdate) Apply(u *core.User) {
	p := &u.Preferences
	if up.Categories != nil {
		p.Categories = lo.Uniq(lo.FilterMap(up.Categories, func(c string, _ int) (string, bool) {
			c = strings.TrimSpace(c)
			return c, core.NormalizeCategory(c) != ""
		}))
	}
	if up.Location != nil {
		p.Location = strings.TrimSpace(*up.Location)
	}
	if up.MaxDistanceKm != nil && *up.MaxDistanceKm >= 0 {
		p.MaxDistanceKm = *up.MaxDistanceKm
	}
	if up.PriceMin != nil {
		p.PriceMin = up.PriceMin
	}
	if up.PriceMax != nil {
		p.PriceMax = up.PriceMax
	}
	if up.StartDate != nil {
		p.StartDate = up.StartDate
	}
	if up.EndDate != nil {
		p.EndDate = up.EndDate
	}
	if up.PreferredCountry != nil {
		p.PreferredCountry = core.NormalizeCountry(*up.PreferredCountry)
	}
	if up.Lat != nil && up.Lon != nil && *up.Lat >= -90 && *up.Lat <= 90 && *up.Lon >= -180 && *up.Lon <= 180 {
		u.Lat, u.Lon = up.Lat, up.Lon
	}
	if up.City != nil {
		u.City = strings.TrimSpace(*up.City)
	}
}

// UpdatePreferences 保存显式偏好设置，版本冲突时重新读取后重试。
func (s *Service) UpdatePreferences(ctx context.Context, userID string, up PreferenceUpdate) (*core.User, error) {
	attempts := s.cfg.Learner.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		u, err := s.repo.GetUser(ctx, userID)
		if core.IsNotFound(err) {
			u = core.NewUser(userID)
			u.CreatedAt = s.now().UTC()
		} else if err != nil {
			return nil, errors.Trace(err)
		}
		up.Apply(u)
		u.UpdatedAt = s.now().UTC()

		err = s.repo.SaveUser(ctx, u)
		if err == nil {
			return u, nil
		}
		if !core.IsConflict(err) {
			return nil, errors.Trace(err)
		}
		lastErr = err
	}
	return nil, lastErr
}

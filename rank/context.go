package rank

import (
	"math"
	"time"

	"github.com/rushteam/eventrec/core"
)

const earthRadiusKm = 6371.0

// ContextWeights 是上下文分的系数。
type ContextWeights struct {
	Geo float64 `mapstructure:"geo"`
	// Time 是时间邻近度权重，HorizonHours 内线性衰减到 0
	Time         float64 `mapstructure:"time"`
	HorizonHours float64 `mapstructure:"horizon_hours"`
}

// DefaultContextWeights 返回默认系数。
func DefaultContextWeights() ContextWeights {
	return ContextWeights{Geo: 0.4, Time: 0.6, HorizonHours: 720}
}

// HaversineKm 返回两点间的大圆距离（千米）。
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// GeoScore 距离在 maxKm 内时线性衰减：w*(1-d/maxKm)；任一方坐标缺失时为 0。
func (w ContextWeights) GeoScore(rctx *core.RecommendContext, it *core.Item) float64 {
	lat, lon, ok := rctx.Location()
	if !ok || it.Lat == nil || it.Lon == nil {
		return 0
	}
	maxKm := rctx.MaxDistanceKm()
	d := HaversineKm(lat, lon, *it.Lat, *it.Lon)
	if d > maxKm {
		return 0
	}
	return w.Geo * (1 - d/maxKm)
}

// TimeScore 开始时间在 (now, now+HorizonHours] 内时线性衰减；已开始或未知时为 0。
func (w ContextWeights) TimeScore(now time.Time, start *time.Time) float64 {
	if start == nil || w.HorizonHours <= 0 {
		return 0
	}
	h := start.Sub(now).Hours()
	if h <= 0 || h > w.HorizonHours {
		return 0
	}
	return w.Time * (1 - h/w.HorizonHours)
}

// Score 返回地理与时间邻近度之和。
func (w ContextWeights) Score(rctx *core.RecommendContext, it *core.Item) float64 {
	return w.GeoScore(rctx, it) + w.TimeScore(rctx.Now, it.Start)
}

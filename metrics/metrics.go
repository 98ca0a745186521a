package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "eventrec"

	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics 是推荐服务的指标集合，注册到调用方提供的 Registerer 上。
type Metrics struct {
	SignalsTotal           *prometheus.CounterVec
	RegionFailuresTotal    *prometheus.CounterVec
	SourceCallsTotal       *prometheus.CounterVec
	RankSeconds            *prometheus.HistogramVec
	RankCandidatesTotal    *prometheus.CounterVec
	SourceUnavailableTotal prometheus.Counter
}

// New 创建并注册指标；reg 为 nil 时使用独立的 Registry（不对外暴露）。
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		SignalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "learner",
			Name:      "signals_total",
			Help:      "Behavioral signals recorded, by interaction type.",
		}, []string{"type"}),
		RegionFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recall",
			Name:      "region_failures_total",
			Help:      "Failed event source queries, by region.",
		}, []string{"region"}),
		SourceCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "calls_total",
			Help:      "Event source queries, by source and outcome.",
		}, []string{"source", "outcome"}),
		RankSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rank",
			Name:      "seconds",
			Help:      "Ranking latency, by mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		RankCandidatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rank",
			Name:      "candidates_total",
			Help:      "Candidates returned by ranking, by mode.",
		}, []string{"mode"}),
		SourceUnavailableTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recall",
			Name:      "source_unavailable_total",
			Help:      "Live rankings where every query including the global fallback failed.",
		}),
	}
}

func (m *Metrics) ObserveSignal(kind string) {
	m.SignalsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveRegionFailure(region string) {
	m.RegionFailuresTotal.WithLabelValues(region).Inc()
}

func (m *Metrics) ObserveSourceCall(source string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.SourceCallsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveRank 记录一次排序的耗时与返回数量。
func (m *Metrics) ObserveRank(mode string, start time.Time, n int) {
	m.RankSeconds.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	m.RankCandidatesTotal.WithLabelValues(mode).Add(float64(n))
}

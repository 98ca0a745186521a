package service

import (
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rushteam/eventrec/config"
	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/metrics"
	"github.com/rushteam/eventrec/repository"
	"github.com/rushteam/eventrec/source"
	"github.com/rushteam/eventrec/store"
)

// Runtime 持有按配置装配的服务，以及退出时需要释放的资源。
type Runtime struct {
	Service *Service
	Store   core.KeyValueStore
	Metrics *metrics.Metrics
	// Fixture 是配置的静态事件源（未配置时为 nil）
	Fixture *source.StaticSource

	events core.EventSource
}

// Build 按配置装配存储、事件源、指标与服务。
func Build(cfg *config.Config, reg prometheus.Registerer) (*Runtime, error) {
	rt := &Runtime{Metrics: metrics.New(reg)}

	switch cfg.Store.Type {
	case config.StoreRedis:
		s, err := store.NewRedisStore(store.RedisOptions{
			Addr:     cfg.Store.Addr,
			Password: cfg.Store.Password,
			DB:       cfg.Store.DB,
		})
		if err != nil {
			return nil, errors.Trace(err)
		}
		rt.Store = s
	default:
		rt.Store = store.NewMemoryStore()
	}

	if cfg.Source.Fixture != "" {
		fixture, err := source.LoadStatic(cfg.Source.Fixture)
		if err != nil {
			_ = rt.Store.Close()
			return nil, errors.Trace(err)
		}
		rt.Fixture = fixture
		rt.events = &source.ObservedSource{
			Next: source.Decorate(fixture, cfg.Source.Options),
			OnCall: func(name string, _ core.Query, err error) {
				rt.Metrics.ObserveSourceCall(name, err)
			},
		}
	}

	svc, err := New(repository.NewKVRepository(rt.Store), rt.events,
		WithConfig(*cfg),
		WithMetrics(rt.Metrics),
	)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Service = svc
	return rt, nil
}

// Close 释放缓存与存储连接。
func (rt *Runtime) Close() error {
	if obs, ok := rt.events.(*source.ObservedSource); ok {
		if c, ok := obs.Next.(*source.CachedSource); ok {
			c.Close()
		}
	}
	return rt.Store.Close()
}

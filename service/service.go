// Package service 组合 learner、recall、rank、rerank，对外提供信号记录与推荐接口。
package service

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/rushteam/eventrec/config"
	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/filter"
	"github.com/rushteam/eventrec/learner"
	"github.com/rushteam/eventrec/metrics"
	"github.com/rushteam/eventrec/model"
	"github.com/rushteam/eventrec/pkg/keylock"
)

// Service 是推荐服务的门面。排序只读取用户偏好；信号记录通过 learner 串行化写入。
type Service struct {
	repo    core.Repository
	events  core.EventSource
	learner *learner.Learner
	model   model.ScoringModel
	filter  filter.Filter
	metrics *metrics.Metrics
	cfg     config.Config

	// ratingLocks 串行化同一 (user, event) 的评分，保证聚合差量正确
	ratingLocks *keylock.Striped
	now         func() time.Time
}

type Option func(*Service)

// WithConfig 覆盖默认配置
func WithConfig(cfg config.Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New 创建服务。events 为 nil 时实时推荐与搜索不可用。
func New(repo core.Repository, events core.EventSource, opts ...Option) (*Service, error) {
	s := &Service{
		repo:        repo,
		events:      events,
		cfg:         config.Default(),
		ratingLocks: keylock.New(0),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(nil)
	}
	s.model = &model.PreferenceModel{Weights: s.cfg.Rank.Model}
	s.learner = learner.New(repo,
		learner.WithRates(s.cfg.Learner.Rates),
		learner.WithMaxAttempts(s.cfg.Learner.MaxAttempts),
		learner.WithClock(s.now),
	)
	if s.cfg.Rank.Filter != "" {
		f, err := filter.NewExprFilter(s.cfg.Rank.Filter)
		if err != nil {
			return nil, errors.Annotate(err, "rank filter")
		}
		s.filter = f
	}
	return s, nil
}

// GetUser 读取用户；不存在时返回空偏好的新用户（不落盘）。
func (s *Service) GetUser(ctx context.Context, userID string) (*core.User, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if core.IsNotFound(err) {
		return core.NewUser(userID), nil
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return u, nil
}

// recommendContext 构造请求上下文；用户没有坐标时使用配置的默认位置。
func (s *Service) recommendContext(ctx context.Context, userID string, limit int) (*core.RecommendContext, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if (u.Lat == nil || u.Lon == nil) && s.cfg.DefaultLocation.Enabled {
		lat, lon := s.cfg.DefaultLocation.Lat, s.cfg.DefaultLocation.Lon
		u.Lat, u.Lon = &lat, &lon
	}
	if limit <= 0 {
		limit = s.cfg.Rank.Limit
	}
	return &core.RecommendContext{
		UserID: userID,
		User:   u,
		Now:    s.now().UTC(),
		Limit:  limit,
		Params: map[string]any{},
	}, nil
}

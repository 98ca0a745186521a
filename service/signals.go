package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/learner"
	"github.com/rushteam/eventrec/pkg/log"
)

// RecordSearchSignal 记录一次搜索并更新偏好。
func (s *Service) RecordSearchSignal(ctx context.Context, userID string, sig learner.SearchSignal) (*core.User, error) {
	u, err := s.learner.OnSearch(ctx, userID, sig)
	if err != nil {
		return nil, errors.Annotatef(err, "record search signal for %s", userID)
	}
	s.metrics.ObserveSignal(string(core.InteractionSearch))
	return u, nil
}

// RecordClickSignal 记录一次点击并更新偏好。
func (s *Service) RecordClickSignal(ctx context.Context, userID string, sig learner.ClickSignal) (*core.User, error) {
	u, err := s.learner.OnClick(ctx, userID, sig)
	if err != nil {
		return nil, errors.Annotatef(err, "record click signal for %s", userID)
	}
	s.metrics.ObserveSignal(string(core.InteractionClick))
	return u, nil
}

// RecordRatingSignal 写入评分反馈、更新事件聚合并更新偏好。
//
// 同一 (user, event) 只保留一条反馈：首次评分累加 rating_sum/rating_count/bookmark_count，
// 重新评分只把新旧评分的差值计入 rating_sum。
//
// 聚合计数先于反馈写入：计数失败时反馈保持旧值，重试会重新计算同一差值；
// 反馈写入失败时回滚已计入的差值。
func (s *Service) RecordRatingSignal(ctx context.Context, userID, eventID string, rating int, comment string) (*core.Feedback, error) {
	if !core.ValidRating(rating) {
		return nil, core.ErrInvalidRating
	}
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, errors.Trace(err)
	}

	unlock := s.ratingLocks.Lock(userID + "|" + eventID)
	defer unlock()

	now := s.now().UTC()
	fb, err := s.repo.GetFeedback(ctx, userID, eventID)
	var delta core.EventStats
	switch {
	case core.IsNotFound(err):
		fb = &core.Feedback{
			ID:        uuid.NewString(),
			UserID:    userID,
			EventID:   eventID,
			CreatedAt: now,
		}
		delta = core.EventStats{RatingSum: float64(rating), RatingCount: 1, BookmarkCount: 1}
	case err != nil:
		return nil, errors.Trace(err)
	default:
		delta = core.EventStats{RatingSum: float64(rating - fb.Rating)}
	}
	fb.Rating = rating
	fb.Comment = strings.TrimSpace(comment)
	fb.UpdatedAt = now

	if err := s.repo.IncrEventStats(ctx, eventID, delta); err != nil {
		return nil, errors.Trace(err)
	}
	if err := s.repo.SaveFeedback(ctx, fb); err != nil {
		if rerr := s.repo.IncrEventStats(ctx, eventID, negate(delta)); rerr != nil {
			log.Logger().Error("failed to revert rating stats",
				zap.String("event", eventID), zap.String("user_id", userID), zap.Error(rerr))
		}
		return nil, errors.Trace(err)
	}
	if _, err := s.learner.OnRating(ctx, userID, e, rating); err != nil {
		return nil, errors.Annotatef(err, "record rating signal for %s", userID)
	}
	s.metrics.ObserveSignal(string(core.InteractionRated))
	return fb, nil
}

func negate(d core.EventStats) core.EventStats {
	return core.EventStats{
		RatingSum:     -d.RatingSum,
		RatingCount:   -d.RatingCount,
		ClickCount:    -d.ClickCount,
		BookmarkCount: -d.BookmarkCount,
	}
}

// ViewEvent 读取事件详情并累加浏览计数。计数与浏览记录失败只记录日志。
func (s *Service) ViewEvent(ctx context.Context, userID, eventID string) (*core.Event, error) {
	e, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := s.repo.IncrEventStats(ctx, eventID, core.EventStats{ClickCount: 1}); err != nil {
		log.Logger().Warn("failed to increment click count", zap.String("event", eventID), zap.Error(err))
	}
	if userID != "" {
		in := &core.Interaction{
			ID:        uuid.NewString(),
			UserID:    userID,
			Type:      core.InteractionView,
			EventRef:  eventID,
			Timestamp: s.now().UTC(),
		}
		if err := s.repo.AppendInteraction(ctx, in); err != nil {
			log.Logger().Warn("failed to record view", zap.String("user_id", userID), zap.Error(err))
		}
	}
	s.metrics.ObserveSignal(string(core.InteractionView))
	return e, nil
}

// ListFeedback 返回事件的全部评分反馈，最近更新的在前。
func (s *Service) ListFeedback(ctx context.Context, eventID string) ([]*core.Feedback, error) {
	out, err := s.repo.ListFeedback(ctx, eventID)
	return out, errors.Trace(err)
}

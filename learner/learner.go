package learner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/pkg/keylock"
	"github.com/rushteam/eventrec/pkg/log"
)

const defaultMaxAttempts = 3

// Learner 消费行为信号，对单个用户的偏好做读-改-写并追加一条交互日志。
//
// 并发：同一进程内按用户串行化；跨进程依赖 Repository 的版本化写入，
// 版本冲突时重新读取并重放更新，最多 MaxAttempts 次。
//
// 更新不是幂等的：重放同一信号会叠加效果，调用方不应盲目重试。
type Learner struct {
	repo        core.Repository
	rates       Rates
	locks       *keylock.Striped
	maxAttempts int
	now         func() time.Time
}

// Option Learner 配置选项
type Option func(*Learner)

// WithRates 设置学习率
func WithRates(r Rates) Option {
	return func(l *Learner) {
		l.rates = r
	}
}

// WithMaxAttempts 设置版本冲突时的最大尝试次数
func WithMaxAttempts(n int) Option {
	return func(l *Learner) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithClock 设置时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(l *Learner) {
		l.now = now
	}
}

func New(repo core.Repository, opts ...Option) *Learner {
	l := &Learner{
		repo:        repo,
		rates:       DefaultRates(),
		locks:       keylock.New(0),
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Rates 返回当前学习率。
func (l *Learner) Rates() Rates { return l.rates }

// OnSearch 处理搜索信号。
func (l *Learner) OnSearch(ctx context.Context, userID string, s SearchSignal) (*core.User, error) {
	in := l.interaction(userID, core.InteractionSearch, "", map[string]any{
		"query":    s.Query,
		"category": s.Category,
		"country":  s.Country,
	})
	if finite(s.PriceMin) {
		in.Metadata["price_min"] = *s.PriceMin
	}
	if finite(s.PriceMax) {
		in.Metadata["price_max"] = *s.PriceMax
	}
	return l.update(ctx, userID, in, func(p *core.Preferences) Mirror {
		return ApplySearch(p, s, l.rates)
	})
}

// OnClick 处理点击信号。提供 EventID 且缺少类别或国家时，从存储的事件补全。
func (l *Learner) OnClick(ctx context.Context, userID string, c ClickSignal) (*core.User, error) {
	if c.EventID != "" && (c.Category == "" || c.Country == "" || c.Title == "") {
		e, err := l.repo.GetEvent(ctx, c.EventID)
		switch {
		case err == nil:
			if c.Category == "" {
				c.Category = e.Category
			}
			if c.Country == "" {
				c.Country = e.CountryCode
			}
			if c.Title == "" {
				c.Title = e.Title
			}
		case core.IsNotFound(err):
			log.Logger().Warn("clicked event not found", zap.String("event_id", c.EventID))
		default:
			return nil, errors.Trace(err)
		}
	}
	ref := c.EventID
	if ref == "" {
		ref = c.ExternalID
	}
	in := l.interaction(userID, core.InteractionClick, ref, map[string]any{
		"source":   c.Source,
		"title":    c.Title,
		"url":      c.URL,
		"category": c.Category,
		"country":  c.Country,
	})
	return l.update(ctx, userID, in, func(p *core.Preferences) Mirror {
		return ApplyClick(p, c, l.rates)
	})
}

// OnRating 处理评分信号，rating 必须在 [1, 5] 内。
func (l *Learner) OnRating(ctx context.Context, userID string, e *core.Event, rating int) (*core.User, error) {
	if !core.ValidRating(rating) {
		return nil, core.ErrInvalidRating
	}
	if e == nil {
		return nil, core.ErrEventNotFound
	}
	in := l.interaction(userID, core.InteractionRated, e.ID, map[string]any{
		"rating": rating,
	})
	return l.update(ctx, userID, in, func(p *core.Preferences) Mirror {
		return ApplyRating(p, e, rating, l.rates)
	})
}

func (l *Learner) interaction(userID string, typ core.InteractionType, ref string, meta map[string]any) *core.Interaction {
	return &core.Interaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		EventRef:  ref,
		Metadata:  meta,
		Timestamp: l.now().UTC(),
	}
}

// update 追加交互日志后，对用户偏好做版本化的读-改-写。
func (l *Learner) update(ctx context.Context, userID string, in *core.Interaction, apply func(*core.Preferences) Mirror) (*core.User, error) {
	unlock := l.locks.Lock(userID)
	defer unlock()

	if err := l.repo.AppendInteraction(ctx, in); err != nil {
		return nil, errors.Annotatef(err, "append %s interaction", in.Type)
	}

	var lastErr error
	for attempt := 0; attempt < l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u, err := l.repo.GetUser(ctx, userID)
		if core.IsNotFound(err) {
			u = core.NewUser(userID)
			u.CreatedAt = l.now().UTC()
		} else if err != nil {
			return nil, errors.Trace(err)
		}
		Project(&u.Preferences, apply(&u.Preferences))
		u.UpdatedAt = l.now().UTC()

		err = l.repo.SaveUser(ctx, u)
		if err == nil {
			return u, nil
		}
		if !core.IsConflict(err) {
			return nil, errors.Trace(err)
		}
		lastErr = err
		log.Logger().Debug("preference write conflict, retrying",
			zap.String("user_id", userID), zap.Int("attempt", attempt+1))
	}
	return nil, lastErr
}

// Package repository 基于 core.KeyValueStore 实现 core.Repository。
package repository

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"

	"github.com/rushteam/eventrec/core"
)

// KVRepository 把用户、事件、评分、交互日志存入任意 KeyValueStore。
// 用户写入使用 CompareAndSwap 做版本化写入；聚合计数使用 HIncrByFloatMulti 事务增量。
type KVRepository struct {
	store core.KeyValueStore
}

func NewKVRepository(store core.KeyValueStore) *KVRepository {
	return &KVRepository{store: store}
}

var _ core.Repository = (*KVRepository)(nil)

func (r *KVRepository) GetUser(ctx context.Context, id string) (*core.User, error) {
	raw, err := r.store.Get(ctx, userKey(id))
	if core.IsStoreNotFound(err) {
		return nil, core.ErrUserNotFound
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	var u core.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, errors.Annotatef(err, "decode user %s", id)
	}
	u.Preferences.EnsureMaps()
	return &u, nil
}

func (r *KVRepository) SaveUser(ctx context.Context, u *core.User) error {
	key := userKey(u.ID)
	old, err := r.store.Get(ctx, key)
	switch {
	case core.IsStoreNotFound(err):
		if u.Version != 0 {
			return core.ErrVersionConflict
		}
		old = nil
	case err != nil:
		return errors.Trace(err)
	default:
		var stored core.User
		if err := json.Unmarshal(old, &stored); err != nil {
			return errors.Annotatef(err, "decode user %s", u.ID)
		}
		if stored.Version != u.Version {
			return core.ErrVersionConflict
		}
	}

	next := *u
	next.Version = u.Version + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return errors.Trace(err)
	}
	ok, err := r.store.CompareAndSwap(ctx, key, old, data)
	if err != nil {
		return errors.Trace(err)
	}
	if !ok {
		return core.ErrVersionConflict
	}
	u.Version = next.Version
	return nil
}

func (r *KVRepository) GetEvent(ctx context.Context, id string) (*core.Event, error) {
	raw, err := r.store.Get(ctx, eventKey(id))
	if core.IsStoreNotFound(err) {
		return nil, core.ErrEventNotFound
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	var e core.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, errors.Annotatef(err, "decode event %s", id)
	}
	return &e, nil
}

func (r *KVRepository) SaveEvent(ctx context.Context, e *core.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Trace(err)
	}
	if err := r.store.Set(ctx, eventKey(e.ID), data); err != nil {
		return errors.Trace(err)
	}
	var score float64
	if e.StartUTC != nil {
		score = float64(e.StartUTC.Unix())
	}
	if err := r.store.ZAdd(ctx, keyEventsByStart, score, e.ID); err != nil {
		return errors.Trace(err)
	}
	if e.Provider != "" && e.ProviderID != "" {
		if err := r.store.Set(ctx, providerKey(e.Provider, e.ProviderID), []byte(e.ID)); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (r *KVRepository) FindEventByProvider(ctx context.Context, provider, providerID string) (*core.Event, error) {
	id, err := r.store.Get(ctx, providerKey(provider, providerID))
	if core.IsStoreNotFound(err) {
		return nil, core.ErrEventNotFound
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return r.GetEvent(ctx, string(id))
}

// FindEventsByFilter 返回满足条件的事件，按开始时间升序，最多 limit 条（<= 0 时使用默认上限）。
// 只读取 events:by_start 中 [From, To] 范围内的事件，按页读取直到凑满 limit。
func (r *KVRepository) FindEventsByFilter(ctx context.Context, f core.EventFilter, limit int) ([]*core.Event, error) {
	if limit <= 0 {
		limit = core.DefaultFilterLimit
	}
	min, max := math.Inf(-1), math.Inf(1)
	if f.From != nil {
		min = float64(f.From.Unix())
	}
	if f.To != nil {
		max = float64(f.To.Unix())
	}
	categories := mapset.NewThreadUnsafeSet(f.Categories...)

	matched := make([]*core.Event, 0, limit)
	for offset := int64(0); len(matched) < limit; offset += int64(limit) {
		ids, err := r.store.ZRangeByScore(ctx, keyEventsByStart, min, max, offset, int64(limit))
		if err != nil {
			return nil, errors.Trace(err)
		}
		events, err := r.batchGetEvents(ctx, ids)
		if err != nil {
			return nil, err
		}
		matched = append(matched, lo.Filter(events, func(e *core.Event, _ int) bool {
			return matchFilter(e, f, categories)
		})...)
		if len(ids) < limit {
			break
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].StartUTC.Before(*matched[j].StartUTC)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func matchFilter(e *core.Event, f core.EventFilter, categories mapset.Set[string]) bool {
	// 没有开始时间的事件不参与推荐
	if e.StartUTC == nil {
		return false
	}
	if f.From != nil && e.StartUTC.Before(*f.From) {
		return false
	}
	if f.To != nil && e.StartUTC.After(*f.To) {
		return false
	}
	if categories.Cardinality() > 0 && !categories.Contains(e.Category) {
		return false
	}
	// 没有价格的事件保留
	if e.PriceMin != nil {
		if f.PriceMin != nil && *e.PriceMin < *f.PriceMin {
			return false
		}
		if f.PriceMax != nil && *e.PriceMin > *f.PriceMax {
			return false
		}
	}
	return true
}

func (r *KVRepository) batchGetEvents(ctx context.Context, ids []string) ([]*core.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := lo.Map(ids, func(id string, _ int) string { return eventKey(id) })
	raws, err := r.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, errors.Trace(err)
	}
	events := make([]*core.Event, 0, len(raws))
	for _, key := range keys {
		raw, ok := raws[key]
		if !ok {
			continue
		}
		var e core.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, errors.Annotatef(err, "decode %s", key)
		}
		events = append(events, &e)
	}
	return events, nil
}

func (r *KVRepository) GetEventStats(ctx context.Context, ids []string) (map[string]core.EventStats, error) {
	result := make(map[string]core.EventStats, len(ids))
	for _, id := range lo.Uniq(ids) {
		fields, err := r.store.HGetAll(ctx, statsKey(id))
		if err != nil {
			return nil, errors.Trace(err)
		}
		result[id] = core.EventStats{
			RatingSum:     parseFloat(fields[fieldRatingSum]),
			RatingCount:   parseFloat(fields[fieldRatingCount]),
			ClickCount:    parseFloat(fields[fieldClickCount]),
			BookmarkCount: parseFloat(fields[fieldBookmarkCount]),
		}
	}
	return result, nil
}

func parseFloat(raw []byte) float64 {
	if raw == nil {
		return 0
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

// IncrEventStats 在一次事务中增量更新事件的聚合计数，各字段同时生效或同时失败。
func (r *KVRepository) IncrEventStats(ctx context.Context, id string, delta core.EventStats) error {
	deltas := lo.PickBy(map[string]float64{
		fieldRatingSum:     delta.RatingSum,
		fieldRatingCount:   delta.RatingCount,
		fieldClickCount:    delta.ClickCount,
		fieldBookmarkCount: delta.BookmarkCount,
	}, func(_ string, d float64) bool { return d != 0 })
	if len(deltas) == 0 {
		return nil
	}
	return errors.Annotatef(r.store.HIncrByFloatMulti(ctx, statsKey(id), deltas), "incr stats of event %s", id)
}

func (r *KVRepository) AppendInteraction(ctx context.Context, in *core.Interaction) error {
	data, err := json.Marshal(in)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(r.store.ZAdd(ctx, interactionsKey(in.UserID), float64(in.Timestamp.UnixNano()), string(data)))
}

// ListInteractions 返回最近的 limit 条交互，按时间倒序；limit <= 0 表示全部。
func (r *KVRepository) ListInteractions(ctx context.Context, userID string, limit int) ([]*core.Interaction, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	members, err := r.store.ZRange(ctx, interactionsKey(userID), 0, stop)
	if err != nil {
		return nil, errors.Trace(err)
	}
	out := make([]*core.Interaction, 0, len(members))
	for _, m := range members {
		var in core.Interaction
		if err := json.Unmarshal([]byte(m), &in); err != nil {
			return nil, errors.Annotatef(err, "decode interaction of user %s", userID)
		}
		out = append(out, &in)
	}
	return out, nil
}

func (r *KVRepository) GetFeedback(ctx context.Context, userID, eventID string) (*core.Feedback, error) {
	raw, err := r.store.Get(ctx, feedbackKey(userID, eventID))
	if core.IsStoreNotFound(err) {
		return nil, core.ErrFeedbackNotFound
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	var fb core.Feedback
	if err := json.Unmarshal(raw, &fb); err != nil {
		return nil, errors.Trace(err)
	}
	return &fb, nil
}

// SaveFeedback 写入评分记录，并同步维护用户/事件两个方向的评分索引。
func (r *KVRepository) SaveFeedback(ctx context.Context, fb *core.Feedback) error {
	data, err := json.Marshal(fb)
	if err != nil {
		return errors.Trace(err)
	}
	if err := r.store.Set(ctx, feedbackKey(fb.UserID, fb.EventID), data); err != nil {
		return errors.Trace(err)
	}
	rating := []byte(strconv.Itoa(fb.Rating))
	if err := r.store.HSet(ctx, userRatingsKey(fb.UserID), fb.EventID, rating); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(r.store.HSet(ctx, eventRatingsKey(fb.EventID), fb.UserID, rating))
}

// ListFeedback 返回事件的全部评分，按更新时间倒序。
func (r *KVRepository) ListFeedback(ctx context.Context, eventID string) ([]*core.Feedback, error) {
	ratings, err := r.store.HGetAll(ctx, eventRatingsKey(eventID))
	if err != nil {
		return nil, errors.Trace(err)
	}
	keys := lo.Map(lo.Keys(ratings), func(uid string, _ int) string { return feedbackKey(uid, eventID) })
	raws, err := r.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, errors.Trace(err)
	}
	out := make([]*core.Feedback, 0, len(raws))
	for _, raw := range raws {
		var fb core.Feedback
		if err := json.Unmarshal(raw, &fb); err != nil {
			return nil, errors.Trace(err)
		}
		out = append(out, &fb)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (r *KVRepository) FindRatedEventIDs(ctx context.Context, userID string, minRating int) (mapset.Set[string], error) {
	ratings, err := r.store.HGetAll(ctx, userRatingsKey(userID))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return mapset.NewThreadUnsafeSet(ratedAtLeast(ratings, minRating)...), nil
}

func (r *KVRepository) FindNeighborRatings(ctx context.Context, eventIDs []string, excludeUser string, minRating int) (map[string]int, error) {
	neighbors := mapset.NewThreadUnsafeSet[string]()
	for _, eid := range lo.Uniq(eventIDs) {
		ratings, err := r.store.HGetAll(ctx, eventRatingsKey(eid))
		if err != nil {
			return nil, errors.Trace(err)
		}
		neighbors.Append(ratedAtLeast(ratings, minRating)...)
	}
	neighbors.Remove(excludeUser)

	counts := make(map[string]int)
	for _, uid := range neighbors.ToSlice() {
		ratings, err := r.store.HGetAll(ctx, userRatingsKey(uid))
		if err != nil {
			return nil, errors.Trace(err)
		}
		for _, eid := range ratedAtLeast(ratings, minRating) {
			counts[eid]++
		}
	}
	return counts, nil
}

// ratedAtLeast 返回评分 >= minRating 的 hash 字段。
func ratedAtLeast(ratings map[string][]byte, minRating int) []string {
	return lo.FilterMap(lo.Entries(ratings), func(e lo.Entry[string, []byte], _ int) (string, bool) {
		v, err := strconv.Atoi(string(e.Value))
		return e.Key, err == nil && v >= minRating
	})
}

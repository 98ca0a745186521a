package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/store"
)

func forEachRepository(t *testing.T, fn func(t *testing.T, r *KVRepository)) {
	t.Run("memory", func(t *testing.T) {
		s := store.NewMemoryStore()
		t.Cleanup(func() { _ = s.Close() })
		fn(t, NewKVRepository(s))
	})
	t.Run("redis", func(t *testing.T) {
		server, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(server.Close)
		s, err := store.NewRedisStore(store.RedisOptions{Addr: server.Addr()})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		fn(t, NewKVRepository(s))
	})
}

func f64(v float64) *float64 { return &v }

func at(days int) *time.Time {
	t := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return &t
}

func TestUserVersioning(t *testing.T) {
	forEachRepository(t, func(t *testing.T, r *KVRepository) {
		ctx := context.Background()
		_, err := r.GetUser(ctx, "u1")
		assert.True(t, core.IsNotFound(err))

		u := core.NewUser("u1")
		u.Preferences.CategoryScores["Music"] = 1
		require.NoError(t, r.SaveUser(ctx, u))
		assert.Equal(t, int64(1), u.Version)

		// a stale writer loses
		stale, err := r.GetUser(ctx, "u1")
		require.NoError(t, err)
		fresh, err := r.GetUser(ctx, "u1")
		require.NoError(t, err)
		fresh.Preferences.CategoryScores["Music"] = 2
		require.NoError(t, r.SaveUser(ctx, fresh))
		stale.Preferences.CategoryScores["Sports"] = 1
		assert.True(t, core.IsConflict(r.SaveUser(ctx, stale)))

		got, err := r.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		assert.Equal(t, 2.0, got.Preferences.CategoryScores["Music"])
		assert.NotContains(t, got.Preferences.CategoryScores, "Sports")

		// creating an existing user conflicts
		assert.True(t, core.IsConflict(r.SaveUser(ctx, core.NewUser("u1"))))
	})
}

func TestEvents(t *testing.T) {
	forEachRepository(t, func(t *testing.T, r *KVRepository) {
		ctx := context.Background()
		events := []*core.Event{
			{ID: "e1", Provider: "ticketmaster", ProviderID: "tm1", Title: "Jazz", Category: "Music", StartUTC: at(2), PriceMin: f64(30)},
			{ID: "e2", Title: "Derby", Category: "Sports", StartUTC: at(1), PriceMin: f64(200)},
			{ID: "e3", Title: "Free Gig", Category: "Music", StartUTC: at(3)},
			{ID: "e4", Title: "Past Gig", Category: "Music", StartUTC: at(-3)},
			{ID: "e5", Title: "Undated", Category: "Music"},
		}
		for _, e := range events {
			require.NoError(t, r.SaveEvent(ctx, e))
		}

		e, err := r.FindEventByProvider(ctx, "ticketmaster", "tm1")
		require.NoError(t, err)
		assert.Equal(t, "e1", e.ID)
		_, err = r.FindEventByProvider(ctx, "ticketmaster", "nope")
		assert.True(t, core.IsNotFound(err))
		_, err = r.GetEvent(ctx, "nope")
		assert.True(t, core.IsNotFound(err))

		found, err := r.FindEventsByFilter(ctx, core.EventFilter{From: at(0)}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"e2", "e1", "e3"}, ids(found))

		found, err = r.FindEventsByFilter(ctx, core.EventFilter{
			From:       at(0),
			Categories: []string{"Music"},
			PriceMax:   f64(100),
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"e1", "e3"}, ids(found))

		found, err = r.FindEventsByFilter(ctx, core.EventFilter{From: at(0), To: at(2)}, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"e2"}, ids(found))

		// 第一页被类别过滤掉后继续读取下一页
		found, err = r.FindEventsByFilter(ctx, core.EventFilter{From: at(0), Categories: []string{"Music"}}, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"e1"}, ids(found))
	})
}

// readTrackingStore 记录 BatchGet 读取过的 key。
type readTrackingStore struct {
	*store.MemoryStore
	read []string
}

func (s *readTrackingStore) BatchGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	s.read = append(s.read, keys...)
	return s.MemoryStore.BatchGet(ctx, keys)
}

func TestFindEventsByFilter_ReadsOnlyStartWindow(t *testing.T) {
	s := &readTrackingStore{MemoryStore: store.NewMemoryStore()}
	t.Cleanup(func() { _ = s.Close() })
	r := NewKVRepository(s)
	ctx := context.Background()
	for _, e := range []*core.Event{
		{ID: "past", StartUTC: at(-3)},
		{ID: "undated"},
		{ID: "soon", StartUTC: at(1)},
		{ID: "later", StartUTC: at(5)},
		{ID: "far", StartUTC: at(30)},
	} {
		require.NoError(t, r.SaveEvent(ctx, e))
	}

	found, err := r.FindEventsByFilter(ctx, core.EventFilter{From: at(0), To: at(10)}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"soon", "later"}, ids(found))
	assert.ElementsMatch(t, []string{"event:soon", "event:later"}, s.read)
}

func ids(events []*core.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestEventStats(t *testing.T) {
	forEachRepository(t, func(t *testing.T, r *KVRepository) {
		ctx := context.Background()
		require.NoError(t, r.IncrEventStats(ctx, "e1", core.EventStats{RatingSum: 4, RatingCount: 1, BookmarkCount: 1}))
		require.NoError(t, r.IncrEventStats(ctx, "e1", core.EventStats{RatingSum: -2}))
		require.NoError(t, r.IncrEventStats(ctx, "e1", core.EventStats{ClickCount: 1}))
		stats, err := r.GetEventStats(ctx, []string{"e1", "e2"})
		require.NoError(t, err)
		assert.Equal(t, core.EventStats{RatingSum: 2, RatingCount: 1, ClickCount: 1, BookmarkCount: 1}, stats["e1"])
		assert.Equal(t, core.EventStats{}, stats["e2"])
	})
}

func TestInteractions(t *testing.T) {
	forEachRepository(t, func(t *testing.T, r *KVRepository) {
		ctx := context.Background()
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		for i, typ := range []core.InteractionType{core.InteractionSearch, core.InteractionClick, core.InteractionRated} {
			require.NoError(t, r.AppendInteraction(ctx, &core.Interaction{
				ID: string(typ), UserID: "u1", Type: typ, Timestamp: base.Add(time.Duration(i) * time.Minute),
			}))
		}
		all, err := r.ListInteractions(ctx, "u1", 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, core.InteractionRated, all[0].Type)

		latest, err := r.ListInteractions(ctx, "u1", 1)
		require.NoError(t, err)
		require.Len(t, latest, 1)
		assert.Equal(t, core.InteractionRated, latest[0].Type)
	})
}

func TestFeedbackAndNeighbors(t *testing.T) {
	forEachRepository(t, func(t *testing.T, r *KVRepository) {
		ctx := context.Background()
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		save := func(uid, eid string, rating int) {
			require.NoError(t, r.SaveFeedback(ctx, &core.Feedback{
				UserID: uid, EventID: eid, Rating: rating, CreatedAt: now, UpdatedAt: now,
			}))
		}
		save("me", "e1", 5)
		save("me", "e2", 2)
		save("alice", "e1", 4)
		save("alice", "e3", 5)
		save("alice", "e4", 4)
		save("bob", "e1", 3)
		save("bob", "e3", 5)
		save("carol", "e1", 5)
		save("carol", "e3", 4)

		_, err := r.GetFeedback(ctx, "me", "e9")
		assert.True(t, core.IsNotFound(err))
		fb, err := r.GetFeedback(ctx, "me", "e2")
		require.NoError(t, err)
		assert.Equal(t, 2, fb.Rating)

		liked, err := r.FindRatedEventIDs(ctx, "me", core.LikedRating)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"e1"}, liked.ToSlice())

		counts, err := r.FindNeighborRatings(ctx, liked.ToSlice(), "me", core.LikedRating)
		require.NoError(t, err)
		// bob rated e1 only 3 and is not a neighbor
		assert.Equal(t, 2, counts["e3"])
		assert.Equal(t, 1, counts["e4"])
		assert.Equal(t, 2, counts["e1"])

		list, err := r.ListFeedback(ctx, "e1")
		require.NoError(t, err)
		assert.Len(t, list, 4)

		// re-rating updates indexes in place
		save("me", "e2", 5)
		liked, err = r.FindRatedEventIDs(ctx, "me", core.LikedRating)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"e1", "e2"}, liked.ToSlice())
	})
}

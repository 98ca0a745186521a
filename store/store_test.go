package store

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/eventrec/core"
)

func newRedisStore(t *testing.T) *RedisStore {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	s, err := NewRedisStore(RedisOptions{Addr: server.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newMemoryStore(t *testing.T) *MemoryStore {
	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func forEachStore(t *testing.T, fn func(t *testing.T, s core.KeyValueStore)) {
	t.Run("memory", func(t *testing.T) { fn(t, newMemoryStore(t)) })
	t.Run("redis", func(t *testing.T) { fn(t, newRedisStore(t)) })
}

func TestGetSetDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.KeyValueStore) {
		ctx := context.Background()
		_, err := s.Get(ctx, "missing")
		assert.True(t, core.IsStoreNotFound(err))

		require.NoError(t, s.Set(ctx, "k", []byte("v")))
		v, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), v)

		require.NoError(t, s.Delete(ctx, "k"))
		_, err = s.Get(ctx, "k")
		assert.True(t, core.IsStoreNotFound(err))
	})
}

func TestBatch(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.KeyValueStore) {
		ctx := context.Background()
		require.NoError(t, s.BatchSet(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}))
		got, err := s.BatchGet(ctx, []string{"a", "b", "c"})
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, got)
	})
}

func TestSortedSet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.KeyValueStore) {
		ctx := context.Background()
		require.NoError(t, s.ZAdd(ctx, "z", 1, "one"))
		require.NoError(t, s.ZAdd(ctx, "z", 3, "three"))
		require.NoError(t, s.ZAdd(ctx, "z", 2, "two"))

		all, err := s.ZRange(ctx, "z", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"three", "two", "one"}, all)

		top, err := s.ZRange(ctx, "z", 0, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"three", "two"}, top)

		empty, err := s.ZRange(ctx, "none", 0, -1)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestZRangeByScore(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.KeyValueStore) {
		ctx := context.Background()
		for i, m := range []string{"a", "b", "c", "d", "e"} {
			require.NoError(t, s.ZAdd(ctx, "z", float64(i*10), m))
		}

		got, err := s.ZRangeByScore(ctx, "z", 10, 30, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "d"}, got)

		got, err = s.ZRangeByScore(ctx, "z", math.Inf(-1), math.Inf(1), 1, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, got)

		got, err = s.ZRangeByScore(ctx, "z", 15, math.Inf(1), 1, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"d", "e"}, got)

		got, err = s.ZRangeByScore(ctx, "z", 100, math.Inf(1), 0, 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestHIncrByFloatMulti(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.KeyValueStore) {
		ctx := context.Background()
		require.NoError(t, s.HIncrByFloatMulti(ctx, "stats", map[string]float64{"rating_sum": 4, "rating_count": 1}))
		require.NoError(t, s.HIncrByFloatMulti(ctx, "stats", map[string]float64{"rating_sum": -1.5}))
		require.NoError(t, s.HIncrByFloatMulti(ctx, "stats", nil))

		all, err := s.HGetAll(ctx, "stats")
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"rating_sum": []byte("2.5"), "rating_count": []byte("1")}, all)
	})
}

func TestHash(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.KeyValueStore) {
		ctx := context.Background()
		_, err := s.HGet(ctx, "h", "f")
		assert.True(t, core.IsStoreNotFound(err))

		require.NoError(t, s.HSet(ctx, "h", "f", []byte("x")))
		v, err := s.HGet(ctx, "h", "f")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), v)

		all, err := s.HGetAll(ctx, "h")
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"f": []byte("x")}, all)

		sum, err := s.HIncrByFloat(ctx, "stats", "rating_sum", 4)
		require.NoError(t, err)
		assert.Equal(t, 4.0, sum)
		sum, err = s.HIncrByFloat(ctx, "stats", "rating_sum", -2)
		require.NoError(t, err)
		assert.Equal(t, 2.0, sum)
	})
}

func TestCompareAndSwap(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.KeyValueStore) {
		ctx := context.Background()
		// create only if absent
		ok, err := s.CompareAndSwap(ctx, "doc", nil, []byte("v1"))
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.CompareAndSwap(ctx, "doc", nil, []byte("v1b"))
		require.NoError(t, err)
		assert.False(t, ok)

		// stale old value
		ok, err = s.CompareAndSwap(ctx, "doc", []byte("v0"), []byte("v2"))
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.CompareAndSwap(ctx, "doc", []byte("v1"), []byte("v2"))
		require.NoError(t, err)
		assert.True(t, ok)
		v, err := s.Get(ctx, "doc")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), v)

		// old value given but key missing
		ok, err = s.CompareAndSwap(ctx, "other", []byte("v1"), []byte("v2"))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestMemoryStoreConcurrentIncr(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.HIncrByFloat(ctx, "stats", "click_count", 1)
		}()
	}
	wg.Wait()
	v, err := s.HIncrByFloat(ctx, "stats", "click_count", 0)
	require.NoError(t, err)
	assert.Equal(t, 50.0, v)
}

func TestMemoryStoreTTL(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("v"), 3600))
	_, err := s.Get(ctx, "k")
	assert.NoError(t, err)
	past := time.Now().Add(-time.Second)
	s.data["k"].expire = &past
	_, err = s.Get(ctx, "k")
	assert.True(t, core.IsStoreNotFound(err))
}

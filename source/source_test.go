package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/eventrec/core"
)

func loadFixture(t *testing.T) *StaticSource {
	t.Helper()
	s, err := LoadStatic("testdata/events.yaml")
	require.NoError(t, err)
	return s
}

func TestStaticSource_Search(t *testing.T) {
	s := loadFixture(t)
	require.Len(t, s.Events(), 5)
	assert.Equal(t, "static:testdata/events.yaml", s.Name())

	tests := []struct {
		name  string
		query core.Query
		want  []string
	}{
		{name: "all", query: core.Query{}, want: []string{"tm-au-1", "tm-au-2", "tm-us-1", "tm-gb-1", "tm-xx-1"}},
		{name: "country", query: core.Query{CountryCode: "au"}, want: []string{"tm-au-1", "tm-au-2"}},
		{name: "category", query: core.Query{Category: "music"}, want: []string{"tm-au-1", "tm-us-1"}},
		{name: "country and category", query: core.Query{CountryCode: "AU", Category: "Music"}, want: []string{"tm-au-1"}},
		{name: "keyword", query: core.Query{Keyword: "JAZZ"}, want: []string{"tm-au-1"}},
		{name: "page size", query: core.Query{PageSize: 2}, want: []string{"tm-au-1", "tm-au-2"}},
		{name: "no match", query: core.Query{CountryCode: "JP"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.Search(context.Background(), tt.query)
			require.NoError(t, err)
			ids := make([]string, 0, len(out))
			for _, e := range out {
				ids = append(ids, e.ID())
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStaticSource_ReturnsCopies(t *testing.T) {
	s := loadFixture(t)
	out, err := s.Search(context.Background(), core.Query{CountryCode: "US"})
	require.NoError(t, err)
	out[0]["title"] = "changed"
	assert.Equal(t, "Brooklyn Indie Rock Showcase", s.Events()[2]["title"])
}

func TestStaticSource_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loadFixture(t).Search(ctx, core.Query{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseStatic_Invalid(t *testing.T) {
	_, err := ParseStatic("bad", []byte("events: [\n"))
	assert.Error(t, err)
	_, err = LoadStatic("testdata/missing.yaml")
	assert.Error(t, err)
}

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Search(_ context.Context, q core.Query) ([]core.RawEvent, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []core.RawEvent{{"id": q.CountryCode}}, nil
}

func TestCachedSource(t *testing.T) {
	next := &countingSource{}
	s := NewCachedSource(next, time.Minute)
	defer s.Close()

	for i := 0; i < 3; i++ {
		out, err := s.Search(context.Background(), core.Query{CountryCode: "AU"})
		require.NoError(t, err)
		assert.Equal(t, "AU", out[0].ID())
	}
	_, err := s.Search(context.Background(), core.Query{CountryCode: "US"})
	require.NoError(t, err)

	assert.Equal(t, int32(2), next.calls.Load())
	assert.Equal(t, 2, s.Len())
}

func TestCachedSource_ErrorsNotCached(t *testing.T) {
	next := &countingSource{err: errors.New("boom")}
	s := NewCachedSource(next, time.Minute)
	defer s.Close()

	for i := 0; i < 2; i++ {
		_, err := s.Search(context.Background(), core.Query{})
		assert.Error(t, err)
	}
	assert.Equal(t, int32(2), next.calls.Load())
	assert.Equal(t, 0, s.Len())
}

func TestBreakerSource_Opens(t *testing.T) {
	next := &countingSource{err: errors.New("boom")}
	s := NewBreakerSource(next, BreakerConfig{Timeout: time.Minute, FailureThreshold: 2})

	for i := 0; i < 2; i++ {
		_, err := s.Search(context.Background(), core.Query{})
		require.Error(t, err)
		assert.False(t, core.IsUnavailable(err))
	}
	assert.Equal(t, "open", s.State())

	_, err := s.Search(context.Background(), core.Query{})
	require.Error(t, err)
	assert.True(t, core.IsUnavailable(err))
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestBreakerSource_PassThrough(t *testing.T) {
	s := NewBreakerSource(&countingSource{}, DefaultBreakerConfig())
	out, err := s.Search(context.Background(), core.Query{CountryCode: "GB"})
	require.NoError(t, err)
	assert.Equal(t, "GB", out[0].ID())
	assert.Equal(t, "closed", s.State())
}

func TestRateLimitedSource(t *testing.T) {
	next := &countingSource{}
	s := NewRateLimitedSource(next, 0.001, 1)

	_, err := s.Search(context.Background(), core.Query{})
	require.NoError(t, err)

	// 令牌耗尽，ctx 超时前拿不到令牌
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Search(ctx, core.Query{})
	assert.Error(t, err)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestDecorate(t *testing.T) {
	next := &countingSource{}
	src := Decorate(next, Options{CacheTTL: time.Minute, RateLimit: 100, Burst: 10, BreakerEnabled: true, Breaker: DefaultBreakerConfig()})
	_, ok := src.(*CachedSource)
	require.True(t, ok)
	defer src.(*CachedSource).Close()

	var observed []string
	obs := &ObservedSource{Next: src, OnCall: func(name string, _ core.Query, err error) {
		observed = append(observed, name)
		assert.NoError(t, err)
	}}
	_, err := obs.Search(context.Background(), core.Query{})
	require.NoError(t, err)
	_, err = obs.Search(context.Background(), core.Query{})
	require.NoError(t, err)

	assert.Equal(t, []string{"counting", "counting"}, observed)
	assert.Equal(t, int32(1), next.calls.Load())

	assert.Same(t, next, Decorate(next, Options{}))
}

func TestFuncSource(t *testing.T) {
	s := &FuncSource{SourceName: "fn", Fn: func(_ context.Context, q core.Query) ([]core.RawEvent, error) {
		return []core.RawEvent{{"id": q.Keyword}}, nil
	}}
	out, err := s.Search(context.Background(), core.Query{Keyword: "x"})
	require.NoError(t, err)
	assert.Equal(t, "fn", s.Name())
	assert.Equal(t, "x", out[0].ID())
}

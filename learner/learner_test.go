package learner

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/eventrec/core"
	"github.com/rushteam/eventrec/repository"
	"github.com/rushteam/eventrec/store"
)

func newLearner(t *testing.T) (*Learner, *repository.KVRepository) {
	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	repo := repository.NewKVRepository(s)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return New(repo, WithClock(func() time.Time { return clock })), repo
}

func f64(v float64) *float64 { return &v }

func TestApplySearch(t *testing.T) {
	p := &core.Preferences{}
	m := ApplySearch(p, SearchSignal{Query: "Jazz in the park", Category: "Music", Country: "au", PriceMin: f64(20), PriceMax: f64(80)}, DefaultRates())
	Project(p, m)
	assert.InDelta(t, 0.3, p.KeywordScores["jazz"], 1e-9)
	assert.InDelta(t, 0.3, p.KeywordScores["park"], 1e-9)
	assert.NotContains(t, p.KeywordScores, "in")
	assert.InDelta(t, 0.5, p.CategoryScores["Music"], 1e-9)
	assert.Equal(t, []string{"Music"}, p.Categories)
	assert.InDelta(t, 0.4, p.CountryScores["AU"], 1e-9)
	assert.Equal(t, "AU", p.PreferredCountry)
	assert.InDelta(t, 20, *p.PriceMin, 1e-9)
	assert.InDelta(t, 80, *p.PriceMax, 1e-9)

	// EMA on the second observation, out of range prices are dropped
	ApplySearch(p, SearchSignal{PriceMin: f64(40), PriceMax: f64(200000)}, DefaultRates())
	assert.InDelta(t, 20*0.7+40*0.3, *p.PriceMin, 1e-9)
	assert.InDelta(t, 80, *p.PriceMax, 1e-9)
}

func TestApplySearchIgnoresWildcards(t *testing.T) {
	p := &core.Preferences{PreferredCountry: "GB", Categories: []string{"Film"}}
	Project(p, ApplySearch(p, SearchSignal{Category: "All", Country: "WORLD"}, DefaultRates()))
	assert.Empty(t, p.CategoryScores)
	assert.Empty(t, p.CountryScores)
	assert.Equal(t, "GB", p.PreferredCountry)
	assert.Equal(t, []string{"Film"}, p.Categories)

	Project(p, ApplySearch(p, SearchSignal{Country: "Australia"}, DefaultRates()))
	assert.Empty(t, p.CountryScores)
}

func TestNonFinitePricesDropped(t *testing.T) {
	p := &core.Preferences{PriceMin: f64(10), PriceMax: f64(90)}
	ApplySearch(p, SearchSignal{PriceMin: f64(math.Inf(-1)), PriceMax: f64(math.NaN())}, DefaultRates())
	assert.InDelta(t, 10, *p.PriceMin, 1e-9)
	assert.InDelta(t, 90, *p.PriceMax, 1e-9)

	l, repo := newLearner(t)
	ctx := context.Background()
	u, err := l.OnSearch(ctx, "u1", SearchSignal{Query: "jazz night", PriceMin: f64(math.NaN()), PriceMax: f64(math.Inf(1))})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, u.Preferences.KeywordScores["jazz"], 1e-9)
	assert.Nil(t, u.Preferences.PriceMin)
	assert.Nil(t, u.Preferences.PriceMax)

	logged, err := repo.ListInteractions(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.NotContains(t, logged[0].Metadata, "price_min")
	assert.NotContains(t, logged[0].Metadata, "price_max")
}

func TestCountryDecay(t *testing.T) {
	l, _ := newLearner(t)
	ctx := context.Background()
	_, err := l.OnSearch(ctx, "u1", SearchSignal{Country: "US"})
	require.NoError(t, err)
	u, err := l.OnSearch(ctx, "u1", SearchSignal{Country: "GB"})
	require.NoError(t, err)
	assert.InDelta(t, 0.4*0.97, u.Preferences.CountryScores["US"], 1e-9)
	assert.InDelta(t, 0.4, u.Preferences.CountryScores["GB"], 1e-9)
	assert.Equal(t, "GB", u.Preferences.PreferredCountry)
}

func TestApplyClick(t *testing.T) {
	p := &core.Preferences{}
	p.EnsureMaps()
	p.CountryScores["US"] = 1
	Project(p, ApplyClick(p, ClickSignal{Title: "Symphony Orchestra", Category: "Music", Country: "de"}, DefaultRates()))
	assert.InDelta(t, 1.0, p.CategoryScores["Music"], 1e-9)
	assert.InDelta(t, 0.7, p.CountryScores["DE"], 1e-9)
	assert.InDelta(t, 0.98, p.CountryScores["US"], 1e-9)
	assert.InDelta(t, 0.5, p.KeywordScores["symphony"], 1e-9)
	assert.Equal(t, "DE", p.PreferredCountry)
	assert.Equal(t, []string{"Music"}, p.Categories)
}

func TestApplyRating(t *testing.T) {
	e := &core.Event{ID: "e1", Title: "Comedy Night", Category: "Arts & Theatre"}
	tests := []struct {
		rating     int
		wantWeight float64
		mirrored   bool
	}{
		{5, 1.5, true},
		{4, 1.5, true},
		{3, 0.5, true},
		{2, -0.5, false},
		{1, -0.5, false},
	}
	for _, tt := range tests {
		p := &core.Preferences{}
		Project(p, ApplyRating(p, e, tt.rating, DefaultRates()))
		assert.InDelta(t, tt.wantWeight, p.CategoryScores["Arts & Theatre"], 1e-9)
		assert.InDelta(t, tt.wantWeight*0.3, p.KeywordScores["comedy"], 1e-9)
		if tt.mirrored {
			assert.Equal(t, []string{"Arts & Theatre"}, p.Categories)
		} else {
			assert.Empty(t, p.Categories)
		}
	}
}

func TestReplayDoublesEffect(t *testing.T) {
	l, _ := newLearner(t)
	ctx := context.Background()
	s := SearchSignal{Query: "techno", Category: "Music"}
	_, err := l.OnSearch(ctx, "u1", s)
	require.NoError(t, err)
	u, err := l.OnSearch(ctx, "u1", s)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, u.Preferences.CategoryScores["Music"], 1e-9)
	assert.InDelta(t, 0.6, u.Preferences.KeywordScores["techno"], 1e-9)
}

func TestOneInteractionPerCall(t *testing.T) {
	l, repo := newLearner(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveEvent(ctx, &core.Event{ID: "e1", Title: "Marathon", Category: "Sports", CountryCode: "AU"}))

	_, err := l.OnSearch(ctx, "u1", SearchSignal{Query: "run"})
	require.NoError(t, err)
	u, err := l.OnClick(ctx, "u1", ClickSignal{EventID: "e1"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, u.Preferences.CategoryScores["Sports"], 1e-9)
	assert.Equal(t, "AU", u.Preferences.PreferredCountry)
	assert.InDelta(t, 0.5, u.Preferences.KeywordScores["marathon"], 1e-9)

	e, err := repo.GetEvent(ctx, "e1")
	require.NoError(t, err)
	_, err = l.OnRating(ctx, "u1", e, 4)
	require.NoError(t, err)

	_, err = l.OnRating(ctx, "u1", e, 9)
	assert.ErrorIs(t, err, core.ErrInvalidRating)

	log, err := repo.ListInteractions(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, log, 3)
}

func TestConcurrentSignals(t *testing.T) {
	l, repo := newLearner(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.OnSearch(ctx, "u1", SearchSignal{Category: "Music"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	u, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.InDelta(t, 20*0.5, u.Preferences.CategoryScores["Music"], 1e-9)
	assert.Equal(t, int64(20), u.Version)
}

// conflictingRepo 在前 n 次写入时模拟其他进程抢先写入。
type conflictingRepo struct {
	*repository.KVRepository
	n int
}

func (r *conflictingRepo) SaveUser(ctx context.Context, u *core.User) error {
	if r.n > 0 {
		r.n--
		return core.ErrVersionConflict
	}
	return r.KVRepository.SaveUser(ctx, u)
}

func TestVersionConflictRetry(t *testing.T) {
	_, base := newLearner(t)
	ctx := context.Background()

	l := New(&conflictingRepo{KVRepository: base, n: 2})
	u, err := l.OnSearch(ctx, "u1", SearchSignal{Category: "Film"})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, u.Preferences.CategoryScores["Film"], 1e-9)

	l = New(&conflictingRepo{KVRepository: base, n: 3})
	_, err = l.OnSearch(ctx, "u1", SearchSignal{Category: "Film"})
	assert.True(t, core.IsConflict(err))
}

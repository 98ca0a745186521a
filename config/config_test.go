package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/eventrec/learner"
	"github.com/rushteam/eventrec/model"
)

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eventrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.Equal(t, 20, cfg.Rank.Limit)
	assert.Equal(t, 0.4, cfg.Rank.QuotaRatio)
	assert.Equal(t, 8, cfg.Rank.MaxQuota)
	assert.Equal(t, 5*time.Second, cfg.Recall.Timeout)
	assert.Equal(t, 500, cfg.Recall.InternalLimit)
	assert.Zero(t, cfg.Recall.MaxConcurrent)
	assert.Empty(t, cfg.Recall.Regions)
	assert.Equal(t, model.DefaultWeights(), cfg.Rank.Model)
	assert.Equal(t, learner.DefaultRates(), cfg.Learner.Rates)
	assert.Equal(t, time.Minute, cfg.Source.CacheTTL)
	assert.Equal(t, uint32(5), cfg.Source.Breaker.FailureThreshold)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
store:
  type: redis
  addr: localhost:6379
source:
  fixture: events.yaml
  rate_limit: 5
  breaker_enabled: true
recall:
  timeout: 2s
  regions: [AU, NZ]
  strict: true
rank:
  limit: 10
  filter: 'event.category != "Comedy"'
  model:
    category: 2
learner:
  rates:
    search_keyword: 0.5
default_location:
  enabled: true
  lat: -33.86
  lon: 151.2
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.Store.Type)
	assert.Equal(t, "localhost:6379", cfg.Store.Addr)
	assert.Equal(t, "events.yaml", cfg.Source.Fixture)
	assert.Equal(t, 5.0, cfg.Source.RateLimit)
	assert.True(t, cfg.Source.BreakerEnabled)
	assert.Equal(t, 2*time.Second, cfg.Recall.Timeout)
	assert.Equal(t, []string{"AU", "NZ"}, cfg.Recall.Regions)
	assert.True(t, cfg.Recall.Strict)
	assert.Equal(t, 10, cfg.Rank.Limit)
	assert.Equal(t, `event.category != "Comedy"`, cfg.Rank.Filter)
	// 未出现在文件中的字段保持默认值
	assert.Equal(t, 2.0, cfg.Rank.Model.Category)
	assert.Equal(t, 3.0, cfg.Rank.Model.OverrideMatch)
	assert.Equal(t, 0.5, cfg.Learner.Rates.SearchKeyword)
	assert.Equal(t, 0.5, cfg.Learner.Rates.SearchCategory)
	assert.True(t, cfg.DefaultLocation.Enabled)
	assert.Equal(t, -33.86, cfg.DefaultLocation.Lat)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("EVENTREC_STORE_TYPE", "redis")
	t.Setenv("EVENTREC_STORE_ADDR", "redis:6379")
	t.Setenv("EVENTREC_RANK_LIMIT", "5")
	t.Setenv("EVENTREC_RECALL_TIMEOUT", "750ms")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.Store.Type)
	assert.Equal(t, "redis:6379", cfg.Store.Addr)
	assert.Equal(t, 5, cfg.Rank.Limit)
	assert.Equal(t, 750*time.Millisecond, cfg.Recall.Timeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "store type", text: "store:\n  type: mongo\n"},
		{name: "redis without addr", text: "store:\n  type: redis\n"},
		{name: "limit", text: "rank:\n  limit: 0\n"},
		{name: "quota ratio", text: "rank:\n  quota_ratio: 1.5\n"},
		{name: "region code", text: "recall:\n  regions: [AUS]\n"},
		{name: "latitude", text: "default_location:\n  lat: 120\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.text))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

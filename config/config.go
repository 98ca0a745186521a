package config

import (
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"

	"github.com/rushteam/eventrec/learner"
	"github.com/rushteam/eventrec/model"
	"github.com/rushteam/eventrec/rank"
	"github.com/rushteam/eventrec/rerank"
	"github.com/rushteam/eventrec/source"
)

// EnvPrefix 是环境变量前缀，例如 EVENTREC_STORE_TYPE=redis
const EnvPrefix = "EVENTREC"

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config 是 eventrec 的全部配置。
type Config struct {
	Store           StoreConfig    `mapstructure:"store"`
	Source          SourceConfig   `mapstructure:"source"`
	Recall          RecallConfig   `mapstructure:"recall"`
	Rank            RankConfig     `mapstructure:"rank"`
	Learner         LearnerConfig  `mapstructure:"learner"`
	Log             LogConfig      `mapstructure:"log"`
	DefaultLocation LocationConfig `mapstructure:"default_location"`
}

type StoreConfig struct {
	Type     string `mapstructure:"type" validate:"oneof=memory redis"`
	Addr     string `mapstructure:"addr" validate:"required_if=Type redis"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type SourceConfig struct {
	// Fixture 是静态事件源的 YAML 文件
	Fixture        string `mapstructure:"fixture"`
	source.Options `mapstructure:",squash"`
}

type RecallConfig struct {
	PageSize      int           `mapstructure:"page_size" validate:"gte=1,lte=200"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// MaxConcurrent 为 0 时每个地区查询各占一个 goroutine，大于 0 时限制并发
	MaxConcurrent int           `mapstructure:"max_concurrent" validate:"gte=0"`
	// Regions 为空时使用 recall.Regions
	Regions       []string      `mapstructure:"regions" validate:"dive,len=2"`
	InternalLimit int           `mapstructure:"internal_limit" validate:"gte=1"`
	// Strict 为 true 时，事件源全部不可用会返回错误而不是空列表
	Strict bool `mapstructure:"strict"`
}

type RankConfig struct {
	Limit      int                    `mapstructure:"limit" validate:"gte=1,lte=100"`
	QuotaRatio float64                `mapstructure:"quota_ratio" validate:"gt=0,lte=1"`
	MaxQuota   int                    `mapstructure:"max_quota" validate:"gte=0"`
	Filter     string                 `mapstructure:"filter"`
	Model      model.Weights          `mapstructure:"model"`
	Context    rank.ContextWeights    `mapstructure:"context"`
	Popularity rank.PopularityWeights `mapstructure:"popularity"`
	Hybrid     rank.HybridWeights     `mapstructure:"hybrid"`
}

type LearnerConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=1"`
	Rates       learner.Rates `mapstructure:"rates"`
}

type LogConfig struct {
	Debug bool   `mapstructure:"debug"`
	Path  string `mapstructure:"path"`
}

// LocationConfig 是用户没有坐标时使用的默认位置
type LocationConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Lat     float64 `mapstructure:"lat" validate:"gte=-90,lte=90"`
	Lon     float64 `mapstructure:"lon" validate:"gte=-180,lte=180"`
}

// Default 返回默认配置。
func Default() Config {
	return Config{
		Store: StoreConfig{Type: StoreMemory},
		Source: SourceConfig{
			Options: source.Options{
				CacheTTL: time.Minute,
				Breaker:  source.DefaultBreakerConfig(),
			},
		},
		Recall: RecallConfig{
			PageSize:      20,
			Timeout:       5 * time.Second,
			InternalLimit: 500,
		},
		Rank: RankConfig{
			Limit:      20,
			QuotaRatio: rerank.DefaultQuotaRatio,
			MaxQuota:   rerank.DefaultMaxQuota,
			Model:      model.DefaultWeights(),
			Context:    rank.DefaultContextWeights(),
			Popularity: rank.DefaultPopularityWeights(),
			Hybrid:     rank.DefaultHybridWeights(),
		},
		Learner: LearnerConfig{
			MaxAttempts: 3,
			Rates:       learner.DefaultRates(),
		},
	}
}

// setDefaults 注册可被环境变量覆盖的 key；其余 key 只能通过配置文件覆盖。
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("store.type", cfg.Store.Type)
	v.SetDefault("store.addr", cfg.Store.Addr)
	v.SetDefault("store.password", cfg.Store.Password)
	v.SetDefault("store.db", cfg.Store.DB)
	v.SetDefault("source.fixture", cfg.Source.Fixture)
	v.SetDefault("source.cache_ttl", cfg.Source.CacheTTL)
	v.SetDefault("source.rate_limit", cfg.Source.RateLimit)
	v.SetDefault("source.burst", cfg.Source.Burst)
	v.SetDefault("source.breaker_enabled", cfg.Source.BreakerEnabled)
	v.SetDefault("recall.page_size", cfg.Recall.PageSize)
	v.SetDefault("recall.timeout", cfg.Recall.Timeout)
	v.SetDefault("recall.max_concurrent", cfg.Recall.MaxConcurrent)
	v.SetDefault("recall.internal_limit", cfg.Recall.InternalLimit)
	v.SetDefault("recall.strict", cfg.Recall.Strict)
	v.SetDefault("rank.limit", cfg.Rank.Limit)
	v.SetDefault("rank.quota_ratio", cfg.Rank.QuotaRatio)
	v.SetDefault("rank.max_quota", cfg.Rank.MaxQuota)
	v.SetDefault("rank.filter", cfg.Rank.Filter)
	v.SetDefault("learner.max_attempts", cfg.Learner.MaxAttempts)
	v.SetDefault("log.debug", cfg.Log.Debug)
	v.SetDefault("log.path", cfg.Log.Path)
	v.SetDefault("default_location.enabled", cfg.DefaultLocation.Enabled)
	v.SetDefault("default_location.lat", cfg.DefaultLocation.Lat)
	v.SetDefault("default_location.lon", cfg.DefaultLocation.Lon)
}

// Load 读取配置文件（path 为空时只使用默认值与环境变量）并校验。
func Load(path string) (*Config, error) {
	v := viper.New()
	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "read config %s", path)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Annotate(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate 校验配置取值范围。
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fe.Namespace()+" failed on "+fe.Tag())
			}
			return errors.NotValidf("config: %s", strings.Join(msgs, "; "))
		}
		return errors.Trace(err)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/user/quote-harvester/internal/entity"
	"github.com/user/quote-harvester/internal/repository"
)

// Config holds the application configuration.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Store  StoreConfig  `mapstructure:"store"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Server ServerConfig `mapstructure:"server"`
	API    APIConfig    `mapstructure:"api"`
	Crawl  CrawlConfig  `mapstructure:"crawl"`
	Export ExportConfig `mapstructure:"export"`

	Sites []SiteConfig `mapstructure:"sites"`
}

// StoreConfig selects the Content Store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig enables the site lock and run log when Addr is set.
type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
	RunLogSize int           `mapstructure:"run_log_size"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// APIConfig controls how the MediaWiki endpoints are called.
type APIConfig struct {
	UserAgent       string        `mapstructure:"user_agent"`
	RequestInterval time.Duration `mapstructure:"request_interval"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// CrawlConfig holds the Scheduler knobs.
type CrawlConfig struct {
	TotalTarget int           `mapstructure:"total_target"`
	PageDelay   time.Duration `mapstructure:"page_delay"`
	Concurrent  bool          `mapstructure:"concurrent"`
	Backoff     BackoffConfig `mapstructure:"backoff"`
}

// BackoffConfig is the retry policy of page enumeration. MaxAttempts 0 retries forever.
type BackoffConfig struct {
	Initial     time.Duration `mapstructure:"initial"`
	Max         time.Duration `mapstructure:"max"`
	Multiplier  float64       `mapstructure:"multiplier"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// ExportConfig caps the export; Scope is "global" or "per_language".
type ExportConfig struct {
	Limit int    `mapstructure:"limit"`
	Scope string `mapstructure:"scope"`
}

const (
	ExportScopeGlobal      = "global"
	ExportScopePerLanguage = "per_language"
)

// SiteConfig is one entry of the sites list.
type SiteConfig struct {
	Language string  `mapstructure:"language"`
	Key      string  `mapstructure:"key"`
	API      string  `mapstructure:"api"`
	Base     string  `mapstructure:"base"`
	Quota    int     `mapstructure:"quota"`
	Share    float64 `mapstructure:"share"`
	PageSize int     `mapstructure:"page_size"`
	Priority int     `mapstructure:"priority"`
}

// setDefaults registers every scalar key, including empty ones, since
// AutomaticEnv only resolves keys viper already knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "data/quotes.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 10*time.Minute)
	v.SetDefault("redis.run_log_size", 100)
	v.SetDefault("server.port", "8080")
	v.SetDefault("api.user_agent", "QuoteCollector/1.0")
	v.SetDefault("api.request_interval", 250*time.Millisecond)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("crawl.total_target", 10000)
	v.SetDefault("crawl.page_delay", 250*time.Millisecond)
	v.SetDefault("crawl.concurrent", false)
	v.SetDefault("crawl.backoff.initial", 2*time.Second)
	v.SetDefault("crawl.backoff.max", time.Minute)
	v.SetDefault("crawl.backoff.multiplier", 2.0)
	v.SetDefault("crawl.backoff.max_attempts", 0)
	v.SetDefault("export.limit", 0)
	v.SetDefault("export.scope", ExportScopeGlobal)
}

// Load reads configuration from the YAML file at path (optional when empty)
// and HARVESTER_* environment variables, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("harvester")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %v: %w", path, err, repository.ErrInvalidConfig)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %v: %w", err, repository.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		add("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		add("store.dsn is required")
	}
	if c.API.UserAgent == "" {
		add("api.user_agent is required")
	}
	if c.Crawl.PageDelay < 0 {
		add("crawl.page_delay must not be negative")
	}
	if c.Crawl.Backoff.Initial <= 0 || c.Crawl.Backoff.Max < c.Crawl.Backoff.Initial {
		add("crawl.backoff needs 0 < initial <= max")
	}
	if c.Crawl.Backoff.MaxAttempts < 0 {
		add("crawl.backoff.max_attempts must not be negative")
	}
	switch c.Export.Scope {
	case ExportScopeGlobal, ExportScopePerLanguage:
	default:
		add("export.scope must be %s or %s, got %q", ExportScopeGlobal, ExportScopePerLanguage, c.Export.Scope)
	}

	if len(c.Sites) == 0 {
		add("at least one site is required")
	}
	seen := make(map[string]bool)
	shareSum := 0.0
	for i, s := range c.Sites {
		if s.Key == "" {
			add("sites[%d].key is required", i)
		} else if seen[s.Key] {
			add("sites[%d].key %q is duplicated", i, s.Key)
		}
		seen[s.Key] = true
		if s.Language == "" {
			add("sites[%d].language is required", i)
		}
		if !validHTTPURL(s.API) {
			add("sites[%d].api %q is not an absolute http(s) URL", i, s.API)
		}
		if !validHTTPURL(s.Base) {
			add("sites[%d].base %q is not an absolute http(s) URL", i, s.Base)
		}
		if s.Quota < 0 || s.Share < 0 || s.PageSize < 0 {
			add("sites[%d] quota, share and page_size must not be negative", i)
		}
		shareSum += s.Share
	}
	if shareSum > 1.0001 {
		add("site shares add up to %.2f, more than 1", shareSum)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", repository.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SiteList resolves quotas and returns the sites in crawl priority order.
// A site with an explicit quota keeps it; sites with a share split
// crawl.total_target, the last of them taking the rounding remainder.
func (c *Config) SiteList() []entity.Site {
	sites := make([]entity.Site, len(c.Sites))
	lastShared := -1
	assigned := 0
	for i, s := range c.Sites {
		quota := s.Quota
		if quota == 0 && s.Share > 0 {
			quota = int(float64(c.Crawl.TotalTarget) * s.Share)
			assigned += quota
			lastShared = i
		}
		sites[i] = entity.Site{
			Language: s.Language,
			Key:      s.Key,
			APIURL:   s.API,
			BaseURL:  s.Base,
			Quota:    quota,
			PageSize: s.PageSize,
			Priority: s.Priority,
		}
	}
	if lastShared >= 0 && c.sharesCoverTotal() {
		sites[lastShared].Quota += c.Crawl.TotalTarget - assigned
	}

	sort.SliceStable(sites, func(i, j int) bool { return sites[i].Priority < sites[j].Priority })
	return sites
}

func (c *Config) sharesCoverTotal() bool {
	sum := 0.0
	for _, s := range c.Sites {
		if s.Quota == 0 {
			sum += s.Share
		}
	}
	return sum > 0.9999
}

// Languages returns the distinct site languages in configuration order.
func (c *Config) Languages() []string {
	var langs []string
	seen := make(map[string]bool)
	for _, s := range c.Sites {
		if !seen[s.Language] {
			seen[s.Language] = true
			langs = append(langs, s.Language)
		}
	}
	return langs
}

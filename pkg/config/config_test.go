package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/quote-harvester/internal/repository"
)

const sampleYAML = `
log_level: debug
store:
  driver: sqlite
  dsn: data/test.db
crawl:
  total_target: 10000
  page_delay: 100ms
  backoff:
    initial: 1s
    max: 30s
    max_attempts: 5
sites:
  - language: zh
    key: zhwikiquote
    api: https://zh.wikiquote.org/w/api.php
    base: https://zh.wikiquote.org/wiki/
    share: 0.7
    priority: 2
  - language: en
    key: enwikiquote
    api: https://en.wikiquote.org/w/api.php
    base: https://en.wikiquote.org/wiki/
    share: 0.3
    priority: 1
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harvester.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 100*time.Millisecond, cfg.Crawl.PageDelay)
	assert.Equal(t, time.Second, cfg.Crawl.Backoff.Initial)
	assert.Equal(t, 5, cfg.Crawl.Backoff.MaxAttempts)
	assert.Equal(t, 2.0, cfg.Crawl.Backoff.Multiplier)
	assert.Equal(t, "QuoteCollector/1.0", cfg.API.UserAgent)
	assert.Equal(t, ExportScopeGlobal, cfg.Export.Scope)
	assert.Equal(t, []string{"zh", "en"}, cfg.Languages())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HARVESTER_STORE_DSN", "/tmp/other.db")
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Store.DSN)
}

func TestLoad_EnvOverrideKeysAbsentFromFile(t *testing.T) {
	t.Setenv("HARVESTER_REDIS_ADDR", "localhost:6379")
	t.Setenv("HARVESTER_REDIS_PASSWORD", "s3cret")
	t.Setenv("HARVESTER_REDIS_DB", "2")
	t.Setenv("HARVESTER_CRAWL_CONCURRENT", "true")
	t.Setenv("HARVESTER_EXPORT_LIMIT", "500")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "s3cret", cfg.Redis.Password)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.Crawl.Concurrent)
	assert.Equal(t, 500, cfg.Export.Limit)
}

func TestLoad_EnvOverrideOnShippedExample(t *testing.T) {
	t.Setenv("HARVESTER_REDIS_ADDR", "localhost:6379")
	t.Setenv("HARVESTER_REDIS_PASSWORD", "s3cret")

	cfg, err := Load(filepath.Join("..", "..", "harvester.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "s3cret", cfg.Redis.Password)
}

func TestSiteList_SplitsSharesAndOrdersByPriority(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	sites := cfg.SiteList()
	require.Len(t, sites, 2)
	assert.Equal(t, "enwikiquote", sites[0].Key)
	assert.Equal(t, 3000, sites[0].Quota)
	assert.Equal(t, "zhwikiquote", sites[1].Key)
	assert.Equal(t, 7000, sites[1].Quota)
}

func TestSiteList_ExplicitQuotaWins(t *testing.T) {
	cfg := &Config{
		Crawl: CrawlConfig{TotalTarget: 100},
		Sites: []SiteConfig{
			{Key: "a", Quota: 5, Share: 0.5},
			{Key: "b", Share: 0.5},
		},
	}
	sites := cfg.SiteList()
	assert.Equal(t, 5, sites[0].Quota)
	assert.Equal(t, 50, sites[1].Quota)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no sites", "store:\n  driver: sqlite\n"},
		{"bad driver", "store:\n  driver: mysql\n" + sitesOnly},
		{"relative api url", `
sites:
  - language: en
    key: enwikiquote
    api: /w/api.php
    base: https://en.wikiquote.org/wiki/
`},
		{"duplicate keys", sitesOnly + `
  - language: en
    key: enwikiquote
    api: https://en.wikiquote.org/w/api.php
    base: https://en.wikiquote.org/wiki/
`},
		{"bad export scope", "export:\n  scope: per_site\n" + sitesOnly},
		{"missing language", `
sites:
  - key: enwikiquote
    api: https://en.wikiquote.org/w/api.php
    base: https://en.wikiquote.org/wiki/
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, repository.ErrInvalidConfig))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, repository.ErrInvalidConfig)
}

const sitesOnly = `
sites:
  - language: en
    key: enwikiquote
    api: https://en.wikiquote.org/w/api.php
    base: https://en.wikiquote.org/wiki/
`

func TestLoad_ShippedExample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "harvester.yaml"))
	require.NoError(t, err)

	sites := cfg.SiteList()
	require.Len(t, sites, 2)
	assert.Equal(t, "enwikiquote", sites[0].Key)
	assert.Equal(t, 3000, sites[0].Quota)
	assert.Equal(t, 7000, sites[1].Quota)
	assert.Equal(t, ExportScopeGlobal, cfg.Export.Scope)
	assert.Empty(t, cfg.Redis.Addr)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, FetchModeStatic, cfg.Fetcher.Mode)
	assert.Equal(t, 3, cfg.Fetcher.MaxRetries)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.MaxAge)
	assert.Equal(t, "stream:catalog_products", cfg.Redis.Stream)
	assert.False(t, cfg.DatabaseConfigured(), "no DB_HOST means in-memory fallback")
	assert.False(t, cfg.RedisConfigured())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CATALOG_URL", "https://shop.example.com/catalog")
	t.Setenv("FETCH_MODE", FetchModeBrowser)
	t.Setenv("FETCH_MAX_RETRIES", "5")
	t.Setenv("FETCH_TIMEOUT", "45s")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/catalog", cfg.Catalog.BaseURL)
	assert.Equal(t, FetchModeBrowser, cfg.Fetcher.Mode)
	assert.Equal(t, 5, cfg.Fetcher.MaxRetries)
	assert.Equal(t, 45*time.Second, cfg.Fetcher.Timeout)
	assert.True(t, cfg.DatabaseConfigured())
	assert.True(t, cfg.RedisConfigured())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Catalog:   CatalogConfig{BaseURL: "https://shop.example.com"},
			Fetcher:   FetcherConfig{Mode: FetchModeStatic, MaxRetries: 3},
			Retention: RetentionConfig{MaxAge: 30 * 24 * time.Hour},
			Server:    ServerConfig{Port: 8080},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty catalog url", func(c *Config) { c.Catalog.BaseURL = "" }, true},
		{"relative catalog url", func(c *Config) { c.Catalog.BaseURL = "shop.example.com" }, true},
		{"unknown fetch mode", func(c *Config) { c.Fetcher.Mode = "carrier-pigeon" }, true},
		{"zero retries", func(c *Config) { c.Fetcher.MaxRetries = 0 }, true},
		{"negative retention", func(c *Config) { c.Retention.MaxAge = -time.Hour }, true},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetDurationOrDefaultIgnoresGarbage(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "soon")
	assert.Equal(t, time.Minute, getDurationOrDefault("FETCH_TIMEOUT", time.Minute))
}

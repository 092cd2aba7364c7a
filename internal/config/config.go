package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Fetch modes select the page source implementation.
const (
	FetchModeStatic  = "static"
	FetchModeBrowser = "browser"
)

type Config struct {
	Catalog   CatalogConfig
	Fetcher   FetcherConfig
	Browser   BrowserConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Retention RetentionConfig
	Server    ServerConfig
	Logging   LoggingConfig
}

type CatalogConfig struct {
	BaseURL         string
	DefaultCategory string
	SiteName        string
}

type FetcherConfig struct {
	Mode         string
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
	MaxRetryWait time.Duration
	UserAgent    string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type RetentionConfig struct {
	MaxAge time.Duration
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Catalog: CatalogConfig{
			BaseURL:         getEnvOrDefault("CATALOG_URL", "https://www.zara.com/tn/fr/homme-tout-l7465.html?v1=2443335"),
			DefaultCategory: getEnvOrDefault("CATALOG_DEFAULT_CATEGORY", "Men"),
			SiteName:        getEnvOrDefault("CATALOG_SITE_NAME", "zara"),
		},
		Fetcher: FetcherConfig{
			Mode:         getEnvOrDefault("FETCH_MODE", FetchModeStatic),
			Timeout:      getDurationOrDefault("FETCH_TIMEOUT", 30*time.Second),
			MaxRetries:   getIntOrDefault("FETCH_MAX_RETRIES", 3),
			RetryDelay:   getDurationOrDefault("FETCH_RETRY_DELAY", 1*time.Second),
			MaxRetryWait: getDurationOrDefault("FETCH_MAX_RETRY_WAIT", 30*time.Second),
			UserAgent:    getEnvOrDefault("FETCH_USER_AGENT", defaultUserAgent),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "fr-FR,fr;q=0.9,en;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Africa/Tunis"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "fr-FR"),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", ""),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "catalog_scraper"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:catalog_products"),
		},
		Retention: RetentionConfig{
			MaxAge: getDurationOrDefault("RETENTION_MAX_AGE", 30*24*time.Hour),
		},
		Server: ServerConfig{
			Port:            getIntOrDefault("PORT", 8080),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("CATALOG_URL must not be empty")
	}
	if !strings.HasPrefix(c.Catalog.BaseURL, "http://") && !strings.HasPrefix(c.Catalog.BaseURL, "https://") {
		return fmt.Errorf("CATALOG_URL must be an absolute http(s) URL")
	}
	if c.Fetcher.Mode != FetchModeStatic && c.Fetcher.Mode != FetchModeBrowser {
		return fmt.Errorf("FETCH_MODE must be %q or %q", FetchModeStatic, FetchModeBrowser)
	}
	if c.Fetcher.MaxRetries < 1 {
		return fmt.Errorf("FETCH_MAX_RETRIES must be at least 1")
	}
	if c.Retention.MaxAge <= 0 {
		return fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	return nil
}

// DatabaseConfigured reports whether a live Postgres store is configured.
// When false, callers fall back to the in-memory store.
func (c *Config) DatabaseConfigured() bool {
	return c.Database.Host != ""
}

// RedisConfigured reports whether the outbox relay target is configured.
func (c *Config) RedisConfigured() bool {
	return c.Redis.Addr != ""
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

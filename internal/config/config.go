// Package config loads runtime settings for the NCEI proxy from the
// environment, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/ncei-cdo-client/pkg/bulk"
	"github.com/Sternrassler/ncei-cdo-client/pkg/cache"
	"github.com/Sternrassler/ncei-cdo-client/pkg/client"
	"github.com/Sternrassler/ncei-cdo-client/pkg/logging"
	"github.com/Sternrassler/ncei-cdo-client/pkg/pagination"
	"github.com/Sternrassler/ncei-cdo-client/pkg/ratelimit"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config holds every setting of the proxy.
type Config struct {
	Token     string // NCEI_TOKEN, used when a request carries none
	BaseURL   string
	UserAgent string
	RedisURL  string // empty disables Redis
	Port      string

	PageLimit      int
	MaxConcurrency int
	RateLimit      int // requests per second per token
	DailyQuota     int
	CacheTTL       time.Duration
	MaxRetries     int
	RequestTimeout time.Duration

	// ProxyRateLimit is the number of requests per minute one client IP
	// may send to the proxy.
	ProxyRateLimit int

	LogLevel  string
	LogPretty bool
}

// Load reads the environment. Files are loaded first with godotenv
// (".env" when none are given); variables already set win over file
// values. A missing .env file is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 {
			return nil, fmt.Errorf("load env files: %w", err)
		}
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	cfg := &Config{
		Token:     os.Getenv("NCEI_TOKEN"),
		BaseURL:   getEnv("NCEI_BASE_URL", client.DefaultBaseURL),
		UserAgent: getEnv("NCEI_USER_AGENT", "ncei-cdo-client/0.1.0"),
		RedisURL:  os.Getenv("REDIS_URL"),
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.PageLimit, err = getEnvInt("PAGE_LIMIT", pagination.MaxPageLimit); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrency, err = getEnvInt("MAX_CONCURRENCY", 1); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = getEnvInt("RATE_LIMIT", ratelimit.DefaultRequestsPerSecond); err != nil {
		return nil, err
	}
	if cfg.DailyQuota, err = getEnvInt("DAILY_QUOTA", ratelimit.DefaultDailyQuota); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getEnvInt("MAX_RETRIES", int(client.DefaultRetryConfig().MaxRetries)); err != nil {
		return nil, err
	}
	if cfg.ProxyRateLimit, err = getEnvInt("PROXY_RATE_LIMIT", 60); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", cache.DefaultTTL); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LogPretty, err = getEnvBool("LOG_PRETTY", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that the library constructors would otherwise
// reject later.
func (c *Config) Validate() error {
	if c.PageLimit < 1 || c.PageLimit > pagination.MaxPageLimit {
		return fmt.Errorf("PAGE_LIMIT must be between 1 and %d (got %d)", pagination.MaxPageLimit, c.PageLimit)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY must be > 0 (got %d)", c.MaxConcurrency)
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("RATE_LIMIT must be > 0 (got %d)", c.RateLimit)
	}
	if c.DailyQuota < 0 {
		return fmt.Errorf("DAILY_QUOTA must be >= 0 (got %d)", c.DailyQuota)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be >= 0 (got %d)", c.MaxRetries)
	}
	if c.ProxyRateLimit < 1 {
		return fmt.Errorf("PROXY_RATE_LIMIT must be > 0 (got %d)", c.ProxyRateLimit)
	}
	return nil
}

// RedisOptions parses RedisURL. Both "redis://host:port/db" URLs and bare
// "host:port" addresses are accepted. It returns nil when Redis is
// disabled.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.RedisURL == "" {
		return nil, nil
	}
	if strings.Contains(c.RedisURL, "://") {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: c.RedisURL}, nil
}

// ClientConfig builds the transport configuration.
func (c *Config) ClientConfig(redisClient *redis.Client) client.Config {
	cfg := client.DefaultConfig(redisClient, c.UserAgent)
	cfg.BaseURL = c.BaseURL
	cfg.RateLimit = c.RateLimit
	cfg.DailyQuota = c.DailyQuota
	cfg.CacheTTL = c.CacheTTL
	cfg.Retry.MaxRetries = uint64(c.MaxRetries)
	return cfg
}

// EngineConfig builds the bulk engine configuration.
func (c *Config) EngineConfig() bulk.Config {
	cfg := bulk.DefaultConfig()
	cfg.PageLimit = c.PageLimit
	cfg.MaxConcurrency = c.MaxConcurrency
	return cfg
}

// LoggingConfig builds the logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(strings.ToLower(c.LogLevel))
	cfg.Pretty = c.LogPretty
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

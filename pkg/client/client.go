// Package client provides the HTTP transport for the NCEI CDO v2 API with
// pacing, daily quota tracking, response caching, retries and a circuit
// breaker.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/ncei-cdo-client/pkg/cache"
	"github.com/Sternrassler/ncei-cdo-client/pkg/logging"
	"github.com/Sternrassler/ncei-cdo-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// DefaultBaseURL is the CDO v2 API root.
const DefaultBaseURL = "https://www.ncei.noaa.gov/cdo-web/api/v2"

// TokenHeader carries the API token on every request.
const TokenHeader = "token"

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 4 << 10

// Client is the NCEI CDO client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	breaker     *gobreaker.CircuitBreaker[*cache.CacheEntry]
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root; relative targets are resolved against it
	BaseURL string

	// Redis client for the response cache and the daily quota counter.
	// nil disables both.
	Redis *redis.Client

	// User-Agent header
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Rate Limiting
	RateLimit  int // Requests per second per token
	DailyQuota int // Requests per token per UTC day

	// Caching
	CacheTTL time.Duration // Lifetime of cached 200 responses

	// Timeout per HTTP attempt
	Timeout time.Duration

	// Retry
	Retry RetryConfig

	// CircuitBreaker settings; nil uses DefaultCircuitBreakerConfig
	CircuitBreaker *CircuitBreakerConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	cb := DefaultCircuitBreakerConfig("ncei")
	return Config{
		BaseURL:        DefaultBaseURL,
		Redis:          redis,
		UserAgent:      userAgent,
		RateLimit:      ratelimit.DefaultRequestsPerSecond,
		DailyQuota:     ratelimit.DefaultDailyQuota,
		CacheTTL:       cache.DefaultTTL,
		Timeout:        30 * time.Second,
		Retry:          DefaultRetryConfig(),
		CircuitBreaker: &cb,
	}
}

// New creates a new NCEI client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.RateLimit <= 0 {
		return nil, fmt.Errorf("rate_limit must be > 0 (got %d)", cfg.RateLimit)
	}

	if cfg.DailyQuota < 0 {
		return nil, fmt.Errorf("daily_quota must be >= 0 (got %d)", cfg.DailyQuota)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base_url must be an absolute http(s) URL (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := logging.NewLogger("ncei-client")

	cbConfig := DefaultCircuitBreakerConfig("ncei")
	if cfg.CircuitBreaker != nil {
		cbConfig = *cfg.CircuitBreaker
	}
	breaker := newCircuitBreaker[*cache.CacheEntry](cbConfig, func(name string, from, to gobreaker.State) {
		nceiCircuitState.WithLabelValues(name).Set(breakerStateValue(to))
		logger.Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("Circuit breaker state changed")
	})

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: ratelimit.NewTracker(cfg.Redis, cfg.RateLimit, cfg.DailyQuota, logger),
		cache:       cacheManager,
		breaker:     breaker,
		config:      cfg,
		logger:      logger,
	}, nil
}

// FetchJSON performs a GET for target and returns the raw JSON body of a
// 200 response. target is either absolute or relative to BaseURL (as built
// by query.Builder with an empty BaseURL).
//
// Errors: ErrMissingCredential for a blank token, *AuthenticationError when
// the token is rejected, *TransportError for everything else. Transient
// failures are retried per Config.Retry before being returned.
func (c *Client) FetchJSON(ctx context.Context, target, token string) ([]byte, error) {
	return c.fetch(ctx, target, token, true)
}

// FetchFresh is FetchJSON without the cache lookup. The response still
// refreshes the cache, so a revoked token fails here even while its pages
// are cached.
func (c *Client) FetchFresh(ctx context.Context, target, token string) ([]byte, error) {
	return c.fetch(ctx, target, token, false)
}

func (c *Client) fetch(ctx context.Context, target, token string, readCache bool) ([]byte, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingCredential
	}

	reqURL, err := c.resolve(target)
	if err != nil {
		return nil, err
	}
	endpoint := path.Base(reqURL.Path)
	fingerprint := cache.Fingerprint(token)

	startTime := time.Now()
	defer func() {
		nceiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	cacheKey := cache.CacheKey{
		Endpoint:    endpoint,
		QueryParams: reqURL.Query(),
		Credential:  fingerprint,
	}
	if c.cache != nil && readCache {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().Str("target", target).Msg("Cache hit")
			nceiRequestsTotal.WithLabelValues(endpoint, "cached").Inc()
			return entry.Data, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 2: Pace, execute through the breaker, retry transient failures
	var entry *cache.CacheEntry
	err = retryWithBackoff(ctx, c.config.Retry, target, func() error {
		if err := c.rateLimiter.Acquire(ctx, fingerprint); err != nil {
			if errors.Is(err, ratelimit.ErrQuotaExhausted) {
				nceiErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
				nceiRequestsTotal.WithLabelValues(endpoint, "quota_exhausted").Inc()
				return &TransportError{Target: target, Class: ErrorClassRateLimit, Err: err}
			}
			return err
		}

		e, err := c.breaker.Execute(func() (*cache.CacheEntry, error) {
			return c.do(ctx, reqURL.String(), target, endpoint, token)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			nceiErrorsTotal.WithLabelValues(string(ErrorClassCircuitOpen)).Inc()
			nceiRequestsTotal.WithLabelValues(endpoint, "circuit_open").Inc()
			return &TransportError{Target: target, Class: ErrorClassCircuitOpen, Err: err}
		}
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Step 3: Update Cache on success
	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return entry.Data, nil
}

// do performs one HTTP attempt.
func (c *Client) do(ctx context.Context, reqURL, target, endpoint, token string) (*cache.CacheEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(TokenHeader, token)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("target", target).
		Msg("Executing NCEI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		class := c.classifyError(nil, err)
		nceiErrorsTotal.WithLabelValues(string(class)).Inc()
		nceiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Warn().Err(err).Str("target", target).Msg("HTTP request failed")
		return nil, &TransportError{Target: target, Class: class, Err: err}
	}
	defer resp.Body.Close()

	nceiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
		if err != nil {
			nceiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return nil, &TransportError{Target: target, StatusCode: resp.StatusCode, Class: ErrorClassNetwork, Err: err}
		}
		return entry, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := errorMessage(body, resp.Status)
	class := c.classifyError(resp, nil)
	if class == ErrorClassClient && mentionsToken(message) {
		class = ErrorClassAuth
	}
	nceiErrorsTotal.WithLabelValues(string(class)).Inc()

	c.logger.Warn().
		Str("target", target).
		Int("status", resp.StatusCode).
		Str("error_class", string(class)).
		Msg("NCEI request error")

	if class == ErrorClassAuth {
		return nil, &AuthenticationError{StatusCode: resp.StatusCode, Message: message}
	}
	return nil, &TransportError{Target: target, StatusCode: resp.StatusCode, Class: class, Message: message}
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrorClassAuth
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		// 1xx/3xx/other 2xx are not valid CDO answers
		return ErrorClassClient
	}
}

// resolve turns target into an absolute URL.
func (c *Client) resolve(target string) (*url.URL, error) {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(target, "/")
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, &TransportError{Target: target, Class: ErrorClassClient, Err: err}
	}
	return u, nil
}

// errorMessage extracts a readable message from a CDO error body such as
// {"status":"400","message":"Token parameter is required."}.
func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return fallback
}

func mentionsToken(message string) bool {
	return strings.Contains(strings.ToLower(message), "token")
}

// QuotaState returns today's daily quota usage for token.
func (c *Client) QuotaState(ctx context.Context, token string) (*ratelimit.QuotaState, error) {
	return c.rateLimiter.GetState(ctx, cache.Fingerprint(token))
}

// CircuitState returns the current state of the circuit breaker.
func (c *Client) CircuitState() gobreaker.State {
	return c.breaker.State()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

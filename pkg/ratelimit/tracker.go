package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrQuotaExhausted is returned by Acquire once the daily budget is spent.
var ErrQuotaExhausted = errors.New("daily request quota exhausted")

// Prometheus metrics for pacing and quota tracking.
var (
	nceiQuotaUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ncei_quota_used",
		Help: "Requests issued today against the NCEI daily quota (last token seen)",
	})

	nceiRateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncei_rate_limit_waits_total",
		Help: "Total number of requests delayed by per-second pacing",
	})

	nceiQuotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ncei_quota_blocks_total",
		Help: "Total number of requests refused because the daily quota was exhausted",
	})
)

// Tracker paces requests and counts them against the daily quota. Both
// limits apply per token.
type Tracker struct {
	redis      *redis.Client
	perSecond  int
	dailyLimit int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a tracker allowing perSecond requests per second and
// dailyLimit requests per token per UTC day. A nil redis client disables
// the daily counter.
func NewTracker(redisClient *redis.Client, perSecond, dailyLimit int, logger zerolog.Logger) *Tracker {
	if perSecond <= 0 {
		perSecond = DefaultRequestsPerSecond
	}
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyQuota
	}
	return &Tracker{
		redis:      redisClient,
		perSecond:  perSecond,
		dailyLimit: dailyLimit,
		limiters:   make(map[string]*rate.Limiter),
		logger:     logger,
		now:        time.Now,
	}
}

// limiterFor returns the pacing limiter of one token, creating it on first
// use.
func (t *Tracker) limiterFor(fingerprint string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[fingerprint]
	if !ok {
		l = rate.NewLimiter(rate.Limit(t.perSecond), t.perSecond)
		t.limiters[fingerprint] = l
	}
	return l
}

// Acquire blocks until a request may be sent for the token identified by
// fingerprint. It returns ctx.Err() if ctx ends while waiting and
// ErrQuotaExhausted once today's budget is spent.
func (t *Tracker) Acquire(ctx context.Context, fingerprint string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r := t.limiterFor(fingerprint).Reserve()
	if delay := r.Delay(); delay > 0 {
		nceiRateLimitWaitsTotal.Inc()
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.Cancel()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if t.redis == nil {
		return nil
	}

	now := t.now()
	key := quotaKey(fingerprint, now)

	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, nextReset(now).Add(time.Hour))
	if _, err := pipe.Exec(ctx); err != nil {
		// quota accounting is best effort; pacing already applied
		t.logger.Warn().Err(err).Msg("Failed to update daily quota counter")
		return nil
	}

	used := int(incr.Val())
	nceiQuotaUsed.Set(float64(used))

	state := &QuotaState{Used: used, Limit: t.dailyLimit, ResetAt: nextReset(now), LastUpdate: now}
	state.UpdateHealth()

	// Used counts this request too, so the limit-th request is still allowed
	if used > t.dailyLimit {
		nceiQuotaBlocksTotal.Inc()
		t.logger.Error().
			Int("used", used).
			Int("limit", t.dailyLimit).
			Dur("reset_in", state.TimeUntilReset()).
			Msg("NCEI daily quota exhausted - blocking request")
		return fmt.Errorf("%w: %d/%d requests, resets at %s",
			ErrQuotaExhausted, used-1, t.dailyLimit, state.ResetAt.Format(time.RFC3339))
	}

	if state.NearLimit() {
		t.logger.Warn().
			Int("used", used).
			Int("limit", t.dailyLimit).
			Msg("NCEI daily quota nearly exhausted")
	}
	return nil
}

// GetState returns today's quota usage for fingerprint. Without Redis the
// usage is always reported as zero.
func (t *Tracker) GetState(ctx context.Context, fingerprint string) (*QuotaState, error) {
	now := t.now()
	state := &QuotaState{Limit: t.dailyLimit, ResetAt: nextReset(now), LastUpdate: now}

	if t.redis != nil {
		used, err := t.redis.Get(ctx, quotaKey(fingerprint, now)).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("get quota counter: %w", err)
		}
		state.Used = used
	}

	state.UpdateHealth()
	return state, nil
}

// Reset clears today's counter for fingerprint.
func (t *Tracker) Reset(ctx context.Context, fingerprint string) error {
	if t.redis == nil {
		return nil
	}
	if err := t.redis.Del(ctx, quotaKey(fingerprint, t.now())).Err(); err != nil {
		return fmt.Errorf("reset quota counter: %w", err)
	}
	return nil
}

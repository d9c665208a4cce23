package client

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/ncei-cdo-client/pkg/ratelimit"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	// 0 makes the first failure final.
	MaxRetries uint64

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
	}
}

// newBackOff builds the exponential policy for cfg, bounded by ctx.
func newBackOff(ctx context.Context, cfg RetryConfig) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if cfg.InitialBackoff > 0 {
		bo.InitialInterval = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		bo.MaxInterval = cfg.MaxBackoff
	}
	bo.MaxElapsedTime = 0 // bounded by MaxRetries instead
	bo.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(bo, cfg.MaxRetries), ctx)
}

// retryWithBackoff runs op until it succeeds, returns a non-retryable
// error, or the retry budget is spent. The last error is returned as is.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, target string, op func() error) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("target", target).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}
		if ctx.Err() != nil || !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		class := string(ClassOf(err))
		nceiRetriesTotal.WithLabelValues(class).Inc()
		nceiRetryBackoffSeconds.WithLabelValues(class).Observe(wait.Seconds())

		log.Debug().
			Err(err).
			Str("target", target).
			Str("error_class", class).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")
	}

	err := backoff.RetryNotify(wrapped, newBackOff(ctx, cfg), notify)
	if err != nil && attempt > 1 && isRetryable(err) {
		log.Warn().
			Err(err).
			Str("target", target).
			Int("attempts", attempt).
			Msg("Retry attempts exhausted")
	}
	return err
}

// isRetryable reports whether err is a transient TransportError. An
// exhausted daily quota does not recover within the retry window.
func isRetryable(err error) bool {
	if errors.Is(err, ratelimit.ErrQuotaExhausted) {
		return false
	}
	var tErr *TransportError
	return errors.As(err, &tErr) && tErr.Retryable()
}

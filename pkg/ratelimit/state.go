// Package ratelimit paces requests to the NCEI CDO API and tracks the
// per-token daily request quota.
//
// CDO allows 5 requests per second and 10,000 requests per day for each
// token. Pacing is local (golang.org/x/time/rate); the daily counter lives
// in Redis so every process sharing a token sees the same budget.
package ratelimit

import (
	"fmt"
	"time"
)

// Default CDO limits per token.
const (
	DefaultRequestsPerSecond = 5
	DefaultDailyQuota        = 10000
)

// QuotaWarningRatio is the share of the daily quota after which the tracker
// logs warnings.
const QuotaWarningRatio = 0.9

// RedisKeyQuotaPrefix prefixes the per-token, per-day counters:
// ncei:quota:<fingerprint>:<yyyymmdd>.
const RedisKeyQuotaPrefix = "ncei:quota"

// QuotaState is the daily quota usage of one token.
type QuotaState struct {
	// Used is the number of requests issued today (UTC).
	Used int `json:"used"`

	// Limit is the daily request budget.
	Limit int `json:"limit"`

	// ResetAt is the next UTC midnight.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the state was read.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true while usage is below QuotaWarningRatio.
	IsHealthy bool `json:"is_healthy"`
}

// Remaining returns the requests left today, never negative.
func (s *QuotaState) Remaining() int {
	if s.Used >= s.Limit {
		return 0
	}
	return s.Limit - s.Used
}

// Exhausted reports whether the budget is used up.
func (s *QuotaState) Exhausted() bool {
	return s.Used >= s.Limit
}

// NearLimit reports whether usage crossed the warning ratio without being
// exhausted.
func (s *QuotaState) NearLimit() bool {
	return !s.Exhausted() && float64(s.Used) >= float64(s.Limit)*QuotaWarningRatio
}

// TimeUntilReset returns the duration until the quota resets.
// Returns 0 if the reset time has already passed.
func (s *QuotaState) TimeUntilReset() time.Duration {
	d := time.Until(s.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth updates IsHealthy from Used and Limit.
func (s *QuotaState) UpdateHealth() {
	s.IsHealthy = !s.Exhausted() && !s.NearLimit()
}

// quotaKey returns the Redis counter key for fingerprint on the UTC day of t.
func quotaKey(fingerprint string, t time.Time) string {
	return fmt.Sprintf("%s:%s:%s", RedisKeyQuotaPrefix, fingerprint, t.UTC().Format("20060102"))
}

// nextReset returns the UTC midnight following t.
func nextReset(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

package ratelimit

import (
	"testing"
	"time"
)

func TestQuotaState_Thresholds(t *testing.T) {
	tests := []struct {
		name          string
		used          int
		limit         int
		wantRemaining int
		wantExhausted bool
		wantNear      bool
		wantHealthy   bool
	}{
		{
			name:          "fresh day",
			used:          0,
			limit:         10000,
			wantRemaining: 10000,
			wantHealthy:   true,
		},
		{
			name:          "below warning ratio",
			used:          8999,
			limit:         10000,
			wantRemaining: 1001,
			wantHealthy:   true,
		},
		{
			name:          "at warning ratio",
			used:          9000,
			limit:         10000,
			wantRemaining: 1000,
			wantNear:      true,
		},
		{
			name:          "exactly exhausted",
			used:          10000,
			limit:         10000,
			wantRemaining: 0,
			wantExhausted: true,
		},
		{
			name:          "over the limit",
			used:          10005,
			limit:         10000,
			wantRemaining: 0,
			wantExhausted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &QuotaState{Used: tt.used, Limit: tt.limit}
			state.UpdateHealth()

			if got := state.Remaining(); got != tt.wantRemaining {
				t.Errorf("Remaining() = %d, want %d", got, tt.wantRemaining)
			}
			if got := state.Exhausted(); got != tt.wantExhausted {
				t.Errorf("Exhausted() = %v, want %v", got, tt.wantExhausted)
			}
			if got := state.NearLimit(); got != tt.wantNear {
				t.Errorf("NearLimit() = %v, want %v", got, tt.wantNear)
			}
			if state.IsHealthy != tt.wantHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.wantHealthy)
			}
		})
	}
}

func TestQuotaState_TimeUntilReset(t *testing.T) {
	tests := []struct {
		name    string
		resetAt time.Time
		wantMin time.Duration
		wantMax time.Duration
	}{
		{
			name:    "reset in future",
			resetAt: time.Now().Add(30 * time.Second),
			wantMin: 29 * time.Second,
			wantMax: 31 * time.Second,
		},
		{
			name:    "reset in past",
			resetAt: time.Now().Add(-10 * time.Second),
			wantMin: 0,
			wantMax: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &QuotaState{ResetAt: tt.resetAt}
			got := state.TimeUntilReset()
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("TimeUntilReset() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestQuotaKey(t *testing.T) {
	day := time.Date(2024, 2, 29, 23, 59, 0, 0, time.UTC)

	if got, want := quotaKey("abc", day), "ncei:quota:abc:20240229"; got != want {
		t.Errorf("quotaKey() = %q, want %q", got, want)
	}

	// keys roll over at UTC midnight regardless of local zone
	est := time.FixedZone("EST", -5*3600)
	local := time.Date(2024, 2, 29, 20, 0, 0, 0, est) // 2024-03-01 01:00 UTC
	if got, want := quotaKey("abc", local), "ncei:quota:abc:20240301"; got != want {
		t.Errorf("quotaKey() = %q, want %q", got, want)
	}
}

func TestNextReset(t *testing.T) {
	got := nextReset(time.Date(2023, 12, 31, 10, 0, 0, 0, time.UTC))
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("nextReset() = %v, want %v", got, want)
	}
}

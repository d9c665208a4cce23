package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTTL is used when the caller passes no TTL and the response
	// carries no usable Expires header.
	DefaultTTL = 24 * time.Hour
)

// ResponseToEntry converts an HTTP response to a CacheEntry.
// It reads the response body and restores it for the caller.
// An Expires header in the future wins over ttl.
func ResponseToEntry(resp *http.Response, ttl time.Duration) (*CacheEntry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := time.Now()
	return &CacheEntry{
		Data:       body,
		StatusCode: resp.StatusCode,
		Expires:    parseExpires(resp.Header, now, ttl),
		CachedAt:   now,
	}, nil
}

// parseExpires returns the expiry for a response received at now.
func parseExpires(headers http.Header, now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	fallback := now.Add(ttl)

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return fallback
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil || !expires.After(now) {
		return fallback
	}
	return expires
}

package cache

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestResponseToEntry(t *testing.T) {
	body := `{"metadata":{"resultset":{"offset":1,"count":1,"limit":25}},"results":[{"id":"GHCND"}]}`
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}

	entry, err := ResponseToEntry(resp, time.Hour)
	if err != nil {
		t.Fatalf("ResponseToEntry() error = %v", err)
	}

	if string(entry.Data) != body {
		t.Errorf("Data = %s, want %s", entry.Data, body)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", entry.StatusCode)
	}
	if ttl := entry.TTL(); ttl < 59*time.Minute || ttl > time.Hour {
		t.Errorf("TTL() = %v, want about 1h", ttl)
	}

	// body must still be readable by the caller
	restored, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read restored body: %v", err)
	}
	if string(restored) != body {
		t.Errorf("restored body = %s, want %s", restored, body)
	}
}

func TestResponseToEntry_NilResponse(t *testing.T) {
	if _, err := ResponseToEntry(nil, time.Minute); err == nil {
		t.Error("ResponseToEntry(nil) should return error")
	}
}

func TestParseExpires(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header string
		ttl    time.Duration
		want   time.Time
	}{
		{
			name: "no header uses ttl",
			ttl:  time.Hour,
			want: now.Add(time.Hour),
		},
		{
			name: "no header and no ttl uses default",
			want: now.Add(DefaultTTL),
		},
		{
			name:   "future header wins",
			header: now.Add(48 * time.Hour).Format(http.TimeFormat),
			ttl:    time.Hour,
			want:   now.Add(48 * time.Hour),
		},
		{
			name:   "past header falls back",
			header: now.Add(-time.Hour).Format(http.TimeFormat),
			ttl:    time.Minute,
			want:   now.Add(time.Minute),
		},
		{
			name:   "garbage header falls back",
			header: "tomorrow-ish",
			ttl:    time.Minute,
			want:   now.Add(time.Minute),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Expires", tt.header)
			}
			got := parseExpires(h, now, tt.ttl)
			if !got.Equal(tt.want) {
				t.Errorf("parseExpires() = %v, want %v", got, tt.want)
			}
		})
	}
}

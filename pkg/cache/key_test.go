package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "simple endpoint no params",
			key: CacheKey{
				Endpoint: "/datasets/",
			},
			want: "ncei:datasets",
		},
		{
			name: "endpoint with query params (sorted)",
			key: CacheKey{
				Endpoint: "/data",
				QueryParams: url.Values{
					"offset":    []string{"1"},
					"datasetid": []string{"GHCND"},
					"limit":     []string{"25"},
				},
			},
			want: "ncei:data:datasetid=GHCND:limit=25:offset=1",
		},
		{
			name: "credential fingerprint",
			key: CacheKey{
				Endpoint:   "/stations",
				Credential: "abc",
			},
			want: "ncei:stations:tok=abc",
		},
		{
			name: "empty endpoint",
			key:  CacheKey{},
			want: "ncei",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("CacheKey.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	key := CacheKey{
		Endpoint: "/data",
		QueryParams: url.Values{
			"stationid":  []string{"GHCND:USW00094728"},
			"datatypeid": []string{"TMAX"},
			"startdate":  []string{"2020-01-01"},
		},
	}

	first := key.String()
	for i := 0; i < 100; i++ {
		if got := key.String(); got != first {
			t.Fatalf("Non-deterministic key: %q vs %q", got, first)
		}
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("") != "" {
		t.Error("Fingerprint(\"\") should be empty")
	}

	a, b := Fingerprint("token-a"), Fingerprint("token-b")
	if a == b {
		t.Error("different tokens produced the same fingerprint")
	}
	if a != Fingerprint("token-a") {
		t.Error("Fingerprint is not stable")
	}
	if len(a) != 16 {
		t.Errorf("len(Fingerprint) = %d, want 16", len(a))
	}
	if a == "token-a" {
		t.Error("Fingerprint leaked the token")
	}
}

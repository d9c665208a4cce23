package query

import (
	"net/url"
	"strings"
	"testing"
)

func TestBuilder_Build(t *testing.T) {
	tests := []struct {
		name     string
		builder  Builder
		endpoint string
		set      AtomicSet
		offset   int
		limit    int
		want     string
	}{
		{
			name:     "relative target with no filters",
			endpoint: "datasets",
			offset:   1,
			limit:    25,
			want:     "/datasets?limit=25&offset=1",
		},
		{
			name:     "filters are sorted with reserved keys",
			endpoint: "data",
			set: AtomicSet{
				{Name: "stationid", Value: "GHCND:USW00094728"},
				{Name: "datasetid", Value: "GHCND"},
			},
			offset: 1001,
			limit:  1000,
			want:   "/data?datasetid=GHCND&limit=1000&offset=1001&stationid=GHCND%3AUSW00094728",
		},
		{
			name:     "absolute base url",
			builder:  Builder{BaseURL: "https://www.ncei.noaa.gov/cdo-web/api/v2/"},
			endpoint: "/stations/",
			offset:   1,
			limit:    1,
			want:     "https://www.ncei.noaa.gov/cdo-web/api/v2/stations?limit=1&offset=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.builder.Build(tt.endpoint, tt.set, tt.offset, tt.limit)
			if got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuilder_Stable(t *testing.T) {
	b := Builder{BaseURL: "https://example.com/v2"}
	a := AtomicSet{{Name: "datatypeid", Value: "TMAX"}, {Name: "datasetid", Value: "GHCND"}}
	c := AtomicSet{{Name: "datasetid", Value: "GHCND"}, {Name: "datatypeid", Value: "TMAX"}}

	first := b.Build("data", a, 1, 25)
	for i := 0; i < 10; i++ {
		if got := b.Build("data", a, 1, 25); got != first {
			t.Fatalf("Build() not deterministic: %q != %q", got, first)
		}
	}
	if got := b.Build("data", c, 1, 25); got != first {
		t.Errorf("field order changed the target: %q != %q", got, first)
	}
}

func TestBuilder_RoundTrip(t *testing.T) {
	target := Builder{}.Build("data", AtomicSet{{Name: "datasetid", Value: "GHCND"}}, 0, 25)

	parsed, err := Parse(target)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.Endpoint != "data" {
		t.Errorf("Endpoint = %q, want data", parsed.Endpoint)
	}
	if parsed.Offset != 0 || parsed.Limit != 25 {
		t.Errorf("Offset, Limit = %d, %d, want 0, 25", parsed.Offset, parsed.Limit)
	}
	if v, ok := parsed.Set.Get("datasetid"); !ok || v != "GHCND" {
		t.Errorf("datasetid = %q, %v", v, ok)
	}

	// decoding through net/url gives the same pairs regardless of order
	u, err := url.Parse(target)
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	want := url.Values{"datasetid": {"GHCND"}, "offset": {"0"}, "limit": {"25"}}
	got := u.Query()
	if len(got) != len(want) {
		t.Fatalf("query has %d keys, want %d", len(got), len(want))
	}
	for k := range want {
		if got.Get(k) != want.Get(k) {
			t.Errorf("%s = %q, want %q", k, got.Get(k), want.Get(k))
		}
	}
}

func TestBuilder_CountOnlyRequest(t *testing.T) {
	target := Builder{}.Build("stations", AtomicSet{{Name: "locationid", Value: "FIPS:37"}}, 1, 1)
	if !strings.Contains(target, "limit=1&") {
		t.Errorf("count-only target %q should carry limit=1", target)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []string{
		"/data?offset=abc&limit=1",
		"/data?offset=1&limit=x",
		"://bad",
	}
	for _, target := range tests {
		if _, err := Parse(target); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", target)
		}
	}
}

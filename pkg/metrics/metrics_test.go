package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sternrassler/ncei-cdo-client/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestHandler(t *testing.T) {
	cache.CacheMisses.Inc()

	server := httptest.NewServer(Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ncei_cache_misses_total") {
		t.Error("exposition is missing ncei_cache_misses_total")
	}
}

func TestNames(t *testing.T) {
	cache.CacheMisses.Inc()

	names, err := Names()
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}
	found := false
	for _, n := range names {
		if !strings.HasPrefix(n, Prefix) {
			t.Errorf("Names() returned %q without prefix", n)
		}
		if n == "ncei_cache_misses_total" {
			found = true
		}
	}
	if !found {
		t.Errorf("Names() = %v, want ncei_cache_misses_total", names)
	}
}

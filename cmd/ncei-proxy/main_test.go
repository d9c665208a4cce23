package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/ncei-cdo-client/internal/config"
	"github.com/Sternrassler/ncei-cdo-client/internal/testutil"
	"github.com/Sternrassler/ncei-cdo-client/pkg/bulk"
	"github.com/Sternrassler/ncei-cdo-client/pkg/client"
	"github.com/Sternrassler/ncei-cdo-client/pkg/query"
	"github.com/redis/go-redis/v9"
)

const testStation = "GHCND:USW00094728"

func newTestServer(t *testing.T, mock *testutil.MockNCEI, redisClient *redis.Client, cfg *config.Config) *httptest.Server {
	t.Helper()

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.ProxyRateLimit == 0 {
		cfg.ProxyRateLimit = 1000
	}

	cc := client.DefaultConfig(redisClient, "TestApp/1.0.0 (test@example.com)")
	cc.BaseURL = mock.URL()
	cc.RateLimit = 1000
	cc.Retry = client.RetryConfig{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
	nceiClient, err := client.New(cc)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	engine, err := bulk.NewEngine(nceiClient, bulk.Config{PageLimit: 10, MaxConcurrency: 2, OffsetBase: 1})
	if err != nil {
		t.Fatalf("bulk.NewEngine() error = %v", err)
	}

	server := httptest.NewServer(newServer(engine, nceiClient, redisClient, cfg).routes())
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, url, token string) (*http.Response, []byte) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("token", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint_WithoutRedis(t *testing.T) {
	mock := testutil.NewMockNCEI()
	defer mock.Close()
	server := newTestServer(t, mock, nil, &config.Config{})

	resp, body := get(t, server.URL+"/ready", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var status map[string]string
	json.Unmarshal(body, &status)
	if status["redis"] != "disabled" || status["circuit"] != "closed" {
		t.Errorf("ready body = %v", status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mock := testutil.NewMockNCEI()
	defer mock.Close()
	server := newTestServer(t, mock, nil, &config.Config{})

	// one run so the bulk counters have samples
	get(t, server.URL+"/v1/datasets", "t0ken")

	resp, body := get(t, server.URL+"/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	bodyStr := string(body)
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	if !strings.Contains(bodyStr, "ncei_bulk_runs_total") {
		t.Error("Expected metrics output to contain ncei_bulk_runs_total")
	}
}

func TestQueryEndpoint(t *testing.T) {
	mock := testutil.NewMockNCEI()
	defer mock.Close()
	mock.SetRecords("data", append(
		testutil.Observations(testStation, "TMAX", 15),
		testutil.Observations(testStation, "TMIN", 4)...,
	))
	server := newTestServer(t, mock, nil, &config.Config{})

	url := server.URL + "/v1/data?datasetid=GHCND&stationid=" + testStation +
		"&datatypeid=TMAX,TMIN&startdate=2020-01-01&enddate=2020-01-31"
	resp, body := get(t, url, "t0ken")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}

	var out queryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Count != 19 || len(out.Records) != 19 || out.Partial {
		t.Errorf("count = %d, records = %d, partial = %v", out.Count, len(out.Records), out.Partial)
	}
	if out.RunID == "" || out.Resource != "data" {
		t.Errorf("run_id = %q, resource = %q", out.RunID, out.Resource)
	}
	if len(out.Sets) != 2 || !strings.Contains(out.Sets[0].Set, "datatypeid=TMAX") || out.Sets[0].Pages != 2 {
		t.Errorf("sets = %+v", out.Sets)
	}
	if out.Records[0]["datatype"] != "TMAX" || out.Records[18]["datatype"] != "TMIN" {
		t.Error("records are not in set order")
	}
}

func TestQueryEndpoint_PartialFailure(t *testing.T) {
	mock := testutil.NewMockNCEI()
	defer mock.Close()
	mock.SetRecords("datatypes", []map[string]any{
		{"id": "TMAX", "name": "Maximum temperature", "datacategoryid": "TEMP"},
		{"id": "PRCP", "name": "Precipitation", "datacategoryid": "PRCP"},
	})
	mock.SetResponse(testutil.Match{
		Endpoint: "datatypes",
		Filters:  map[string]string{query.FilterDataCategoryID: "PRCP"},
		Limit:    10,
	}, testutil.NewServerErrorResponse())
	server := newTestServer(t, mock, nil, &config.Config{})

	resp, body := get(t, server.URL+"/v1/datatypes?datacategoryid=TEMP&datacategoryid=PRCP", "t0ken")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var out queryResponse
	json.Unmarshal(body, &out)
	if !out.Partial || out.Count != 1 || len(out.Failures) != 1 {
		t.Fatalf("partial = %v, count = %d, failures = %+v", out.Partial, out.Count, out.Failures)
	}
	if f := out.Failures[0]; f.Phase != "page" || f.Kind != "transport" || f.Set != "datacategoryid=PRCP" {
		t.Errorf("failure = %+v", f)
	}
}

func TestQueryEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		token      string
		setup      func(m *testutil.MockNCEI)
		wantStatus int
		wantError  string
	}{
		{"unknown resource", "/v1/weather", "t0ken", nil, http.StatusNotFound, "unknown_resource"},
		{"unknown parameter", "/v1/stations?foo=bar", "t0ken", nil, http.StatusBadRequest, "unknown_parameter"},
		{"reserved parameter", "/v1/stations?limit=5", "t0ken", nil, http.StatusBadRequest, "invalid_parameter"},
		{"bad date", "/v1/data?startdate=tomorrow", "t0ken", nil, http.StatusBadRequest, "invalid_parameter"},
		{"missing token", "/v1/stations", "", nil, http.StatusUnauthorized, "missing_credential"},
		{"rejected token", "/v1/stations", "expired",
			func(m *testutil.MockNCEI) { m.SetValidTokens("valid") },
			http.StatusUnauthorized, "authentication"},
		{"total failure", "/v1/stations?datasetid=GHCND", "t0ken",
			func(m *testutil.MockNCEI) {
				m.SetResponse(testutil.Match{Endpoint: "stations"}, testutil.NewServerErrorResponse())
			},
			http.StatusBadGateway, "total_failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockNCEI()
			defer mock.Close()
			if tt.setup != nil {
				tt.setup(mock)
			}
			server := newTestServer(t, mock, nil, &config.Config{})

			resp, body := get(t, server.URL+tt.path, tt.token)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, tt.wantStatus, body)
			}
			var out errorResponse
			if err := json.Unmarshal(body, &out); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if out.Error != tt.wantError {
				t.Errorf("error = %q, want %q (%s)", out.Error, tt.wantError, out.Message)
			}
			if tt.wantError == "total_failure" && len(out.Failures) != 1 {
				t.Errorf("failures = %+v, want 1", out.Failures)
			}
		})
	}
}

func TestQueryEndpoint_TimeoutBeforeAnyRecord(t *testing.T) {
	mock := testutil.NewMockNCEI()
	defer mock.Close()
	mock.SetResponse(testutil.Match{Endpoint: "stations"}, testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{}`,
		Delay:      500 * time.Millisecond,
	})
	server := newTestServer(t, mock, nil, &config.Config{RequestTimeout: 50 * time.Millisecond})

	resp, body := get(t, server.URL+"/v1/stations?datasetid=GHCND,GSOM", "t0ken")
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504 (body %s)", resp.StatusCode, body)
	}
	var out errorResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if out.Error != string(bulk.KindCanceled) {
		t.Errorf("error = %q, want %q", out.Error, bulk.KindCanceled)
	}
	if len(out.Failures) != 2 {
		t.Errorf("failures = %+v, want one per set", out.Failures)
	}
}

func TestQueryEndpoint_DefaultToken(t *testing.T) {
	mock := testutil.NewMockNCEI()
	defer mock.Close()
	mock.SetValidTokens("server-token")
	mock.SetRecords("datasets", []map[string]any{{"id": "GHCND", "name": "Daily Summaries"}})
	server := newTestServer(t, mock, nil, &config.Config{Token: "server-token"})

	resp, body := get(t, server.URL+"/v1/datasets", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if got := mock.LastRequestHeader.Get("token"); got != "server-token" {
		t.Errorf("upstream token = %q", got)
	}
}

func TestQuotaEndpoint(t *testing.T) {
	mock := testutil.NewMockNCEI()
	defer mock.Close()
	server := newTestServer(t, mock, nil, &config.Config{})

	resp, _ := get(t, server.URL+"/v1/quota", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("without token: status = %d, want 401", resp.StatusCode)
	}

	resp, body := get(t, server.URL+"/v1/quota", "t0ken")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out quotaResponse
	json.Unmarshal(body, &out)
	if out.Used != 0 || out.Limit != 10000 || out.Remaining != 10000 || !out.Healthy {
		t.Errorf("quota = %+v", out)
	}
}

func TestProxyRateLimit(t *testing.T) {
	mock := testutil.NewMockNCEI()
	defer mock.Close()
	server := newTestServer(t, mock, nil, &config.Config{ProxyRateLimit: 2})

	var last int
	for i := 0; i < 3; i++ {
		resp, _ := get(t, server.URL+"/v1/quota", "t0ken")
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}

	// health checks are not limited
	if resp, _ := get(t, server.URL+"/health", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []query.Parameter
		wantErr bool
	}{
		{"empty", "", nil, false},
		{
			name: "repeated and comma-separated",
			raw:  "datatypeid=TMAX&stationid=A&datatypeid=TMIN,PRCP",
			want: []query.Parameter{
				{Name: "datatypeid", Values: []string{"TMAX", "TMIN", "PRCP"}},
				{Name: "stationid", Values: []string{"A"}},
			},
		},
		{
			name: "escaped",
			raw:  "stationid=GHCND%3AUSW00094728&&locationid=FIPS:37",
			want: []query.Parameter{
				{Name: "stationid", Values: []string{"GHCND:USW00094728"}},
				{Name: "locationid", Values: []string{"FIPS:37"}},
			},
		},
		{
			name: "duplicate values dropped",
			raw:  "datatypeid=TMAX&datatypeid=TMAX,TMIN&datatypeid=TMIN",
			want: []query.Parameter{
				{Name: "datatypeid", Values: []string{"TMAX", "TMIN"}},
			},
		},
		{"bad escape", "stationid=%zz", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

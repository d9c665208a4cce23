// Package testutil provides testing utilities for the NCEI CDO client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/ncei-cdo-client/pkg/query"
)

// MockResponse defines a canned response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// Match selects requests for an override. Zero fields match anything.
type Match struct {
	Endpoint string
	Filters  map[string]string
	Offset   int // wire offset
	Limit    int
}

func (m Match) matches(t query.Target) bool {
	if m.Endpoint != "" && m.Endpoint != t.Endpoint {
		return false
	}
	if m.Offset != 0 && m.Offset != t.Offset {
		return false
	}
	if m.Limit != 0 && m.Limit != t.Limit {
		return false
	}
	for name, want := range m.Filters {
		if got, ok := t.Set.Get(name); !ok || got != want {
			return false
		}
	}
	return true
}

type override struct {
	match Match
	resp  MockResponse
}

// MockNCEI is an in-memory CDO v2 API. Records registered per endpoint are
// filtered by the request's filters and paged with 1-based offsets, the
// way the real service does it.
type MockNCEI struct {
	server    *httptest.Server
	mu        sync.RWMutex
	records   map[string][]map[string]any
	overrides []override
	handlers  map[string]http.HandlerFunc
	tokens    map[string]struct{}

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	requests          []query.Target
}

// NewMockNCEI creates and starts a mock server.
func NewMockNCEI() *MockNCEI {
	mock := &MockNCEI{
		records:  make(map[string][]map[string]any),
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target, err := query.Parse(r.URL.RequestURI())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "400", "message": err.Error()})
			return
		}

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.requests = append(mock.requests, target)
		handler, hasHandler := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if hasHandler {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r, target)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockNCEI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockNCEI) Close() {
	m.server.Close()
}

// Reset clears the tracking counters. Records and overrides stay.
func (m *MockNCEI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.requests = nil
}

// SetRecords replaces the records served for endpoint (e.g. "data").
func (m *MockNCEI) SetRecords(endpoint string, records []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[endpoint] = records
}

// SetValidTokens restricts the accepted tokens. With none set, any
// non-empty token is accepted.
func (m *MockNCEI) SetValidTokens(tokens ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m.tokens[t] = struct{}{}
	}
}

// SetResponse serves resp for every request matching match. Overrides are
// checked in the order they were added.
func (m *MockNCEI) SetResponse(match Match, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides = append(m.overrides, override{match: match, resp: resp})
}

// SetHandler sets a custom handler for a specific path.
func (m *MockNCEI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockNCEI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// Requests returns the parsed targets of all requests, in arrival order.
func (m *MockNCEI) Requests() []query.Target {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]query.Target, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockNCEI) defaultHandler(w http.ResponseWriter, r *http.Request, target query.Target) {
	m.mu.RLock()
	tokens := m.tokens
	var resp *MockResponse
	for _, o := range m.overrides {
		if o.match.matches(target) {
			r := o.resp
			resp = &r
			break
		}
	}
	all := m.records[target.Endpoint]
	m.mu.RUnlock()

	token := r.Header.Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "400", "message": "Token parameter is required."})
		return
	}
	if len(tokens) > 0 {
		if _, ok := tokens[token]; !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"status": "401", "message": "Token parameter is invalid."})
			return
		}
	}

	if resp != nil {
		writeMock(w, *resp)
		return
	}

	matching := make([]map[string]any, 0, len(all))
	for _, rec := range all {
		if recordMatches(rec, target.Set) {
			matching = append(matching, rec)
		}
	}
	if len(matching) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}

	limit := target.Limit
	if limit <= 0 {
		limit = 25
	}
	start := target.Offset - 1
	if start < 0 {
		start = 0
	}
	if start > len(matching) {
		start = len(matching)
	}
	end := start + limit
	if end > len(matching) {
		end = len(matching)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metadata": map[string]any{
			"resultset": map[string]any{
				"offset": target.Offset,
				"count":  len(matching),
				"limit":  limit,
			},
		},
		"results": matching[start:end],
	})
}

// recordMatches applies the filters the record has a field for. A filter
// "datatypeid" also matches a field "datatype". Other filters (dates,
// units, sorting) are ignored.
func recordMatches(rec map[string]any, set query.AtomicSet) bool {
	for _, f := range set {
		v, ok := rec[f.Name]
		if !ok {
			v, ok = rec[strings.TrimSuffix(f.Name, "id")]
		}
		if !ok {
			continue
		}
		if fmt.Sprint(v) != f.Value {
			return false
		}
	}
	return true
}

func writeMock(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewJSONResponse creates a 200 OK response with the given body.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status":"500","message":"Internal server error"}`,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status":"429","message":"Rate limit exceeded"}`,
	}
}

// NewAuthErrorResponse creates a 401 response for an invalid token.
func NewAuthErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"status":"401","message":"Token parameter is invalid."}`,
	}
}

// Observations generates daily records for station and datatype starting
// at the first of January 2020.
func Observations(station, datatype string, days int) []map[string]any {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]map[string]any, days)
	for i := range out {
		out[i] = map[string]any{
			"date":       start.AddDate(0, 0, i).Format("2006-01-02T15:04:05"),
			"datatype":   datatype,
			"station":    station,
			"attributes": ",,W,2400",
			"value":      100 + i,
		}
	}
	return out
}

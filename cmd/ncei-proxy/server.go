package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Sternrassler/ncei-cdo-client/internal/config"
	"github.com/Sternrassler/ncei-cdo-client/pkg/bulk"
	"github.com/Sternrassler/ncei-cdo-client/pkg/client"
	"github.com/Sternrassler/ncei-cdo-client/pkg/logging"
	"github.com/Sternrassler/ncei-cdo-client/pkg/metrics"
	"github.com/Sternrassler/ncei-cdo-client/pkg/query"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

type server struct {
	engine         *bulk.Engine
	client         *client.Client
	redis          *redis.Client
	defaultToken   string
	requestTimeout time.Duration
	rateLimit      int
	logger         zerolog.Logger
}

func newServer(engine *bulk.Engine, c *client.Client, redisClient *redis.Client, cfg *config.Config) *server {
	return &server{
		engine:         engine,
		client:         c,
		redis:          redisClient,
		defaultToken:   cfg.Token,
		requestTimeout: cfg.RequestTimeout,
		rateLimit:      cfg.ProxyRateLimit,
		logger:         logging.NewLogger("ncei-proxy"),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ready", s.readyHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			s.rateLimit,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByRealIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, try again later", nil)
			}),
		))
		r.Get("/quota", s.quotaHandler)
		r.Get("/{resource}", s.queryHandler)
	})
	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 while Redis is unreachable or the upstream
// breaker is open.
func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"redis": "disabled", "circuit": s.client.CircuitState().String()}
	ready := true

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
			ready = false
		} else {
			status["redis"] = "ok"
		}
	}
	if s.client.CircuitState() == gobreaker.StateOpen {
		ready = false
	}

	code := http.StatusOK
	status["status"] = "ready"
	if !ready {
		code = http.StatusServiceUnavailable
		status["status"] = "not ready"
	}
	writeJSON(w, code, status)
}

func (s *server) token(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(client.TokenHeader)); t != "" {
		return t
	}
	return s.defaultToken
}

func (s *server) quotaHandler(w http.ResponseWriter, r *http.Request) {
	token := s.token(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, string(bulk.KindMissingCredential), client.ErrMissingCredential.Error(), nil)
		return
	}
	state, err := s.client.QuotaState(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, string(bulk.KindInternal), err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, quotaResponse{
		Used:      state.Used,
		Limit:     state.Limit,
		Remaining: state.Remaining(),
		ResetAt:   state.ResetAt,
		Healthy:   state.IsHealthy,
	})
}

func (s *server) queryHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	resource, ok := query.ResourceByName(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_resource", fmt.Sprintf("unknown resource %q", name), nil)
		return
	}

	params, err := parseParams(r.URL.RawQuery)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(bulk.KindInvalidParameter), err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	result, err := s.engine.QueryAll(ctx, query.NewDescriptor(resource, params...), s.token(r))
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQueryResponse(result))
}

func (s *server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	kind := bulk.KindOf(err)
	var failures []failureResponse
	status := http.StatusInternalServerError

	var total *bulk.TotalFailureError
	switch {
	case errors.As(err, &total) && allCanceled(total.Failures):
		status = http.StatusGatewayTimeout
		kind = bulk.KindCanceled
		failures = newFailureResponses(total.Failures)
	case errors.As(err, &total):
		status = http.StatusBadGateway
		kind = "total_failure"
		failures = newFailureResponses(total.Failures)
	case kind == bulk.KindUnknownParameter, kind == bulk.KindInvalidParameter:
		status = http.StatusBadRequest
	case kind == bulk.KindMissingCredential, kind == bulk.KindAuthentication:
		status = http.StatusUnauthorized
	case kind == bulk.KindCanceled:
		status = http.StatusGatewayTimeout
	}

	s.logger.Warn().
		Err(err).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Int("status", status).
		Msg("Query failed")
	writeError(w, status, string(kind), err.Error(), failures)
}

// allCanceled reports whether the run only failed because the request
// deadline or the client ended it.
func allCanceled(failures []bulk.Failure) bool {
	for _, f := range failures {
		if f.Kind != bulk.KindCanceled {
			return false
		}
	}
	return len(failures) > 0
}

// parseParams reads filters from a raw query string, keeping the order in
// which names first appear. A name may repeat and values may be
// comma-separated: "datatypeid=TMAX,TMIN" equals
// "datatypeid=TMAX&datatypeid=TMIN". Repeated values are dropped, each one
// would cost a full extra set of requests.
func parseParams(rawQuery string) ([]query.Parameter, error) {
	var params []query.Parameter
	index := make(map[string]int)

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("invalid parameter name %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", key, err)
		}

		i, seen := index[key]
		if !seen {
			i = len(params)
			index[key] = i
			params = append(params, query.Parameter{Name: key})
		}
		for _, v := range strings.Split(value, ",") {
			v = strings.TrimSpace(v)
			if !slices.Contains(params[i].Values, v) {
				params[i].Values = append(params[i].Values, v)
			}
		}
	}
	return params, nil
}

type queryResponse struct {
	RunID      string            `json:"run_id"`
	Resource   string            `json:"resource"`
	Count      int               `json:"count"`
	Partial    bool              `json:"partial"`
	DurationMS int64             `json:"duration_ms"`
	Records    []bulk.Record     `json:"records"`
	Failures   []failureResponse `json:"failures"`
	Sets       []setResponse     `json:"sets"`
}

type failureResponse struct {
	Set     string `json:"set"`
	Phase   string `json:"phase"`
	Kind    string `json:"kind"`
	Offset  int    `json:"offset"`
	Skipped []int  `json:"skipped,omitempty"`
	Error   string `json:"error"`
}

type setResponse struct {
	Set     string `json:"set"`
	State   string `json:"state"`
	Total   int    `json:"total"`
	Pages   int    `json:"pages"`
	Fetched int    `json:"fetched"`
	Records int    `json:"records"`
}

type quotaResponse struct {
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	Healthy   bool      `json:"healthy"`
}

type errorResponse struct {
	Error    string            `json:"error"`
	Message  string            `json:"message"`
	Failures []failureResponse `json:"failures,omitempty"`
}

func newQueryResponse(result *bulk.Result) queryResponse {
	resp := queryResponse{
		RunID:      result.RunID,
		Resource:   result.Resource,
		Count:      result.Records.Len(),
		Partial:    result.Partial(),
		DurationMS: result.Duration.Milliseconds(),
		Records:    result.Records.Records(),
		Failures:   newFailureResponses(result.Failures),
		Sets:       make([]setResponse, 0, len(result.Sets)),
	}
	for _, s := range result.Sets {
		resp.Sets = append(resp.Sets, setResponse{
			Set:     s.Set.String(),
			State:   string(s.State),
			Total:   s.Total,
			Pages:   s.Pages,
			Fetched: s.Fetched,
			Records: s.Records,
		})
	}
	return resp
}

func newFailureResponses(failures []bulk.Failure) []failureResponse {
	out := make([]failureResponse, 0, len(failures))
	for _, f := range failures {
		fr := failureResponse{
			Set:     f.Set.String(),
			Phase:   string(f.Phase),
			Kind:    string(f.Kind),
			Offset:  f.Offset,
			Skipped: f.Skipped,
		}
		if f.Err != nil {
			fr.Error = f.Err.Error()
		}
		out = append(out, fr)
	}
	return out
}

func writeError(w http.ResponseWriter, status int, kind, message string, failures []failureResponse) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message, Failures: failures})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

package bulk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/ncei-cdo-client/pkg/client"
	"github.com/Sternrassler/ncei-cdo-client/pkg/logging"
	"github.com/Sternrassler/ncei-cdo-client/pkg/pagination"
	"github.com/Sternrassler/ncei-cdo-client/pkg/query"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Fetcher performs one authenticated GET and returns the raw body.
// FetchFresh must not answer from a cache. *client.Client implements it.
type Fetcher interface {
	FetchJSON(ctx context.Context, target, token string) ([]byte, error)
	FetchFresh(ctx context.Context, target, token string) ([]byte, error)
}

// State is the lifecycle position of one atomic set. Sets finish in
// StateDone, StatePartial or StateFailed; StateMerging covers the final
// merge of all sets.
type State string

const (
	StateValidating State = "validating"
	StateCounting   State = "counting"
	StatePaginating State = "paginating"
	StateMerging    State = "merging"
	StateDone       State = "done"
	StateFailed     State = "failed"
	StatePartial    State = "partial"
)

// Config configures an Engine.
type Config struct {
	// PageLimit is the page size; clamped to [1, pagination.MaxPageLimit].
	PageLimit int

	// MaxConcurrency bounds how many atomic sets are processed at once.
	// Pages of one set are always fetched sequentially.
	MaxConcurrency int

	// OffsetBase is added to every logical offset on the wire. The CDO API
	// is 1-based.
	OffsetBase int

	// BaseURL is prefixed to request targets. Leave empty when the Fetcher
	// resolves relative targets itself.
	BaseURL string
}

// DefaultConfig returns the configuration for the public CDO API.
func DefaultConfig() Config {
	return Config{
		PageLimit:      pagination.MaxPageLimit,
		MaxConcurrency: 1,
		OffsetBase:     1,
	}
}

// Engine runs bulk queries. It is safe for concurrent use.
type Engine struct {
	fetcher Fetcher
	config  Config
	builder query.Builder
	logger  zerolog.Logger
}

// NewEngine creates an Engine.
func NewEngine(fetcher Fetcher, cfg Config) (*Engine, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.OffsetBase < 0 {
		return nil, fmt.Errorf("offset_base must be >= 0 (got %d)", cfg.OffsetBase)
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	cfg.PageLimit = pagination.ClampLimit(cfg.PageLimit)

	return &Engine{
		fetcher: fetcher,
		config:  cfg,
		builder: query.Builder{BaseURL: cfg.BaseURL},
		logger:  logging.NewLogger("bulk-engine"),
	}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// SetReport summarizes one atomic set.
type SetReport struct {
	Set     query.AtomicSet
	State   State
	Total   int // count reported by the API
	Pages   int // pages planned
	Fetched int // pages merged
	Records int // distinct records from this set
}

// Result is the outcome of QueryAll.
type Result struct {
	RunID    string
	Resource string
	Records  *Collection
	Failures []Failure
	Sets     []SetReport
	Duration time.Duration
}

// Partial reports whether some records may be missing.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0
}

type setOutcome struct {
	records  *Collection
	failures []Failure
	report   SetReport
	fatal    error
}

// QueryAll fetches every record matching desc.
//
// Parameters are validated and the token checked before any request is
// made. Each atomic set is counted, then paged in increasing offset order;
// sets run on up to MaxConcurrency workers. Records are merged in set order
// so the result is independent of scheduling.
//
// An authentication failure aborts the run and is returned as the error.
// Other failures are reported in Result.Failures, unless every set failed
// and nothing was collected, in which case a *TotalFailureError is
// returned.
func (e *Engine) QueryAll(ctx context.Context, desc query.Descriptor, token string) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	resource := desc.Resource()
	logger := logging.WithRun(e.logger, runID, resource.Name)

	if err := desc.Validate(); err != nil {
		bulkRunsTotal.WithLabelValues(resource.Name, outcomeInvalid).Inc()
		logger.Warn().Err(err).Msg("Rejected query parameters")
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		bulkRunsTotal.WithLabelValues(resource.Name, outcomeInvalid).Inc()
		return nil, client.ErrMissingCredential
	}
	sets, err := query.Combine(desc.Parameters())
	if err != nil {
		bulkRunsTotal.WithLabelValues(resource.Name, outcomeInvalid).Inc()
		return nil, err
	}

	keyFields := resource.NaturalKey
	if len(keyFields) == 0 {
		keyFields = []string{"id"}
	}

	logger.Info().
		Int("sets", len(sets)).
		Int("page_limit", e.config.PageLimit).
		Int("concurrency", e.config.MaxConcurrency).
		Msg("Bulk query started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		abortOnce sync.Once
		abortErr  error
	)
	outcomes := make([]setOutcome, len(sets))
	started := pagination.RunPool(runCtx, len(sets), e.config.MaxConcurrency, func(ctx context.Context, i int) {
		outcomes[i] = e.runSet(ctx, logger, resource, sets[i], keyFields, token)
		if outcomes[i].fatal != nil {
			abortOnce.Do(func() {
				abortErr = outcomes[i].fatal
				cancel()
			})
		}
	})

	if abortErr != nil {
		bulkRunsTotal.WithLabelValues(resource.Name, outcomeAborted).Inc()
		logger.Error().Err(abortErr).Msg("Bulk query aborted")
		return nil, abortErr
	}

	result := &Result{
		RunID:    runID,
		Resource: resource.Name,
		Records:  NewCollection(keyFields...),
	}
	allFailed := len(sets) > 0
	for i, set := range sets {
		o := outcomes[i]
		if !started[i] {
			cause := ctx.Err()
			if cause == nil {
				cause = context.Canceled
			}
			o = setOutcome{
				report:   SetReport{Set: set, State: StateFailed},
				failures: []Failure{{Set: set, Phase: PhaseCount, Kind: KindCanceled, Err: cause}},
			}
		}
		result.Records.MergeCollection(o.records)
		result.Failures = append(result.Failures, o.failures...)
		result.Sets = append(result.Sets, o.report)
		if len(o.failures) == 0 {
			allFailed = false
		}
	}
	result.Duration = time.Since(start)
	bulkDuration.WithLabelValues(resource.Name).Observe(result.Duration.Seconds())

	if allFailed && result.Records.Len() == 0 {
		bulkRunsTotal.WithLabelValues(resource.Name, outcomeFailed).Inc()
		logger.Error().
			Int("failures", len(result.Failures)).
			Dur("duration", result.Duration).
			Msg("Bulk query failed for every parameter set")
		return nil, &TotalFailureError{Failures: result.Failures}
	}

	outcome := outcomeComplete
	if result.Partial() {
		outcome = outcomePartial
	}
	bulkRunsTotal.WithLabelValues(resource.Name, outcome).Inc()
	bulkRecordsTotal.WithLabelValues(resource.Name).Add(float64(result.Records.Len()))

	logger.Info().
		Int("records", result.Records.Len()).
		Int("failures", len(result.Failures)).
		Dur("duration", result.Duration).
		Msg("Bulk query finished")

	return result, nil
}

// runSet counts, pages and collects one atomic set. It only touches its
// own outcome.
func (e *Engine) runSet(ctx context.Context, logger zerolog.Logger, resource query.Resource, set query.AtomicSet, keyFields []string, token string) setOutcome {
	out := setOutcome{report: SetReport{Set: set, State: StateCounting}}
	l := logging.WithSet(logger, set.String())

	total, err := e.fetchCount(ctx, resource.Endpoint, set, token)
	if err != nil {
		if isFatal(err) {
			out.fatal = err
			return out
		}
		out.report.State = StateFailed
		out.failures = []Failure{{Set: set, Phase: PhaseCount, Kind: KindOf(err), Err: err}}
		l.Warn().Err(err).Msg("Count request failed")
		return out
	}

	offsets := pagination.Plan(total, e.config.PageLimit)
	out.report.Total = total
	out.report.Pages = len(offsets)
	out.report.State = StatePaginating
	l.Debug().Int("total", total).Int("pages", len(offsets)).Msg("Paginating")

	records := NewCollection(keyFields...)
	for i, offset := range offsets {
		err := e.fetchPage(ctx, resource.Endpoint, set, offset, token, records)
		if err != nil {
			bulkPagesTotal.WithLabelValues(resource.Name, "failed").Inc()
			if isFatal(err) {
				out.fatal = err
				return out
			}
			out.report.State = StatePartial
			out.failures = append(out.failures, Failure{
				Set:     set,
				Phase:   PhasePage,
				Kind:    KindOf(err),
				Offset:  offset,
				Skipped: append([]int(nil), offsets[i+1:]...),
				Err:     err,
			})
			l.Warn().Err(err).Int("offset", offset).Msg("Page request failed")
			break
		}
		bulkPagesTotal.WithLabelValues(resource.Name, "ok").Inc()
		out.report.Fetched++
	}

	out.records = records
	out.report.Records = records.Len()
	if out.report.State == StatePaginating {
		out.report.State = StateDone
	}
	l.Debug().Str("state", string(out.report.State)).Int("records", records.Len()).Msg("Set finished")
	return out
}

// fetchCount asks for a single record to learn the total. It always goes
// upstream, so a revoked token is caught before cached pages are served.
func (e *Engine) fetchCount(ctx context.Context, endpoint string, set query.AtomicSet, token string) (int, error) {
	target := e.builder.Build(endpoint, set, e.config.OffsetBase, 1)
	body, err := e.fetcher.FetchFresh(ctx, target, token)
	if err != nil {
		return 0, err
	}
	return parseCount(target, body)
}

// fetchPage requests the page at a logical offset and merges it into into.
// Nothing is merged if any record lacks its natural key.
func (e *Engine) fetchPage(ctx context.Context, endpoint string, set query.AtomicSet, offset int, token string, into *Collection) error {
	target := e.builder.Build(endpoint, set, offset+e.config.OffsetBase, e.config.PageLimit)
	body, err := e.fetcher.FetchJSON(ctx, target, token)
	if err != nil {
		return err
	}
	records, err := parseResults(target, body)
	if err != nil {
		return err
	}
	if err := into.Merge(records); err != nil {
		if errors.Is(err, ErrMissingKey) {
			return &client.MalformedResponseError{Target: target, Reason: "record without natural key", Err: err}
		}
		return err
	}
	return nil
}

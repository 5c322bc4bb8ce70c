package fallback

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/partsource/clock"
	"github.com/jonwraymond/partsource/health"
	"github.com/jonwraymond/partsource/observe"
	"github.com/jonwraymond/partsource/provider"
	"github.com/jonwraymond/partsource/registry"
	"github.com/jonwraymond/partsource/resilience"
)

// Operation names used for telemetry.
const (
	OpSearch  = "search"
	OpDetails = "details"
	OpCompare = "compare"
)

// Config configures an Orchestrator.
type Config struct {
	// Executor runs every provider attempt.
	// Default: 3 attempts with 200ms base delay, retrying only errors
	// accepted by provider.IsRetryable, no spacing.
	Executor *resilience.Executor

	// SourceTimeout bounds one attempt against a part source.
	// Default: 8s
	SourceTimeout time.Duration

	// GeneratorTimeout bounds one attempt against a generator.
	// Default: 30s
	GeneratorTimeout time.Duration

	// DefaultLimit is used by Search when limit is not positive.
	// Default: 10
	DefaultLimit int

	// Bulkhead optionally caps the number of concurrent operations.
	Bulkhead *resilience.Bulkhead

	// Middleware instruments every attempt.
	// Default: no-op
	Middleware *observe.Middleware

	// Clock measures attempt durations for the health tracker.
	// Default: clock.Real
	Clock clock.Clock
}

// Orchestrator runs Search, Resolve and Compare across registered providers.
//
// Contract:
//   - Concurrency: safe for concurrent use; calls share the registries'
//     health trackers.
//   - Ordering: within one call, candidates are tried strictly one at a time.
//   - Caching: an adapter's stored answer is returned without an attempt, so
//     it is not spaced, retried or recorded with the health tracker.
//   - Errors: provider failures are reported in the result, never returned.
type Orchestrator struct {
	config     Config
	sources    *registry.Registry[provider.PartSource]
	generators *registry.Registry[provider.Generator]
	exec       *resilience.Executor
	mw         *observe.Middleware
	clock      clock.Clock
}

// New creates an Orchestrator over the given registries. Either may be nil;
// operations that need a nil registry return ErrNoProviders.
func New(config Config, sources *registry.Registry[provider.PartSource], generators *registry.Registry[provider.Generator]) *Orchestrator {
	if config.SourceTimeout <= 0 {
		config.SourceTimeout = 8 * time.Second
	}
	if config.GeneratorTimeout <= 0 {
		config.GeneratorTimeout = 30 * time.Second
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 10
	}
	config.Clock = clock.OrReal(config.Clock)
	if config.Executor == nil {
		config.Executor = resilience.NewExecutor(
			resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
				RetryIf: provider.IsRetryable,
				Clock:   config.Clock,
			})),
		)
	}
	if config.Middleware == nil {
		config.Middleware = observe.NewMiddleware(nil, nil, nil)
	}

	return &Orchestrator{
		config:     config,
		sources:    sources,
		generators: generators,
		exec:       config.Executor,
		mw:         config.Middleware,
		clock:      config.Clock,
	}
}

// ProviderFailure describes one failed candidate.
type ProviderFailure struct {
	Provider string             `json:"provider"`
	Kind     provider.ErrorKind `json:"kind"`
	Message  string             `json:"message"`
}

// Attempts records what happened to each candidate during one call.
type Attempts struct {
	ProvidersTried []string          `json:"providersTried"`
	Skipped        []string          `json:"skipped,omitempty"`
	Errors         []ProviderFailure `json:"errors"`
}

func (a *Attempts) fail(name string, err error) {
	a.Errors = append(a.Errors, ProviderFailure{
		Provider: name,
		Kind:     provider.Classify(err),
		Message:  err.Error(),
	})
}

// SearchOptions tunes a single Search call.
type SearchOptions struct {
	// Hint moves the named provider to the front for this call only.
	Hint string

	// MaxProviders caps the number of candidates considered. 0 means all.
	MaxProviders int

	// PerProviderTimeout overrides Config.SourceTimeout for this call.
	PerProviderTimeout time.Duration

	// Dedupe removes results sharing a name and brand.
	// Default: true
	Dedupe *bool

	// ContinueOnLimit keeps querying providers after limit results have
	// been collected.
	ContinueOnLimit bool
}

// SearchResult is the outcome of Search.
type SearchResult struct {
	// Success is false only when no results were found and at least one
	// provider failed.
	Success           bool                        `json:"success"`
	Results           []provider.NormalizedResult `json:"results"`
	TotalFound        int                         `json:"totalFound"`
	DuplicatesRemoved int                         `json:"duplicatesRemoved"`
	Attempts
}

// ResolveOptions tunes a single Resolve call.
type ResolveOptions struct {
	Hint               string
	PerProviderTimeout time.Duration
}

// ResolveResult is the outcome of Resolve.
type ResolveResult struct {
	Result   provider.NormalizedResult `json:"result"`
	Degraded bool                      `json:"degraded"`
	Attempts
}

// CompareOptions tunes a single Compare call.
type CompareOptions struct {
	Hint               string
	PerProviderTimeout time.Duration

	// Focus is passed to the generator, for example "gaming".
	Focus string
}

// CompareResult is the outcome of Compare.
type CompareResult struct {
	Comparison provider.Comparison `json:"comparison"`
	Degraded   bool                `json:"degraded"`
	Attempts
}

// Search queries part sources in priority order and merges their results.
func (o *Orchestrator) Search(ctx context.Context, query, category string, limit int, opts SearchOptions) (*SearchResult, error) {
	if o.sources == nil || o.sources.Len() == 0 {
		return nil, ErrNoProviders
	}
	if limit <= 0 {
		limit = o.config.DefaultLimit
	}
	release, err := o.admit(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	timeout := pick(opts.PerProviderTimeout, o.config.SourceTimeout)
	res := &SearchResult{}
	var found []provider.NormalizedResult

	for _, name := range capNames(o.sources.OrderedNames(opts.Hint), opts.MaxProviders) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, ok := o.sources.Entry(name)
		if !ok {
			continue
		}
		meta := observe.ProviderMeta{Name: name, Kind: observe.KindSource, Op: OpSearch}
		if !o.usable(ctx, o.sources.Tracker(), meta, entry.Adapter) {
			res.Skipped = append(res.Skipped, name)
			continue
		}

		res.ProvidersTried = append(res.ProvidersTried, name)
		var (
			parts []provider.NormalizedResult
			hit   bool
		)
		if c, ok := entry.Adapter.(cachedSearcher); ok {
			if parts, hit = c.CachedSearch(ctx, query, category, limit); hit {
				o.servedFromCache(ctx, meta)
			}
		}
		if !hit {
			var err error
			parts, err = attempt(ctx, o, o.sources.Tracker(), meta, timeout,
				func(ctx context.Context) ([]provider.NormalizedResult, error) {
					return entry.Adapter.SearchParts(ctx, query, category, limit)
				})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				res.fail(name, err)
				continue
			}
		}

		for _, p := range parts {
			if p.SourceProvider == "" {
				p.SourceProvider = name
			}
			found = append(found, p)
		}
		if len(found) >= limit && !opts.ContinueOnLimit {
			break
		}
	}

	res.TotalFound = len(found)
	if opts.Dedupe == nil || *opts.Dedupe {
		found, res.DuplicatesRemoved = Dedupe(found)
	}
	if len(found) > limit {
		found = found[:limit]
	}
	if found == nil {
		found = []provider.NormalizedResult{}
	}
	res.Results = found
	res.Success = len(found) > 0 || len(res.Errors) == 0
	return res, nil
}

// Resolve returns the details of one part from the first provider that
// knows it. If none does, the result is a degraded placeholder whose
// SourceProvider is provider.NoneProvider.
func (o *Orchestrator) Resolve(ctx context.Context, identifier string, opts ResolveOptions) (*ResolveResult, error) {
	if o.sources == nil || o.sources.Len() == 0 {
		return nil, ErrNoProviders
	}
	release, err := o.admit(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	res := &ResolveResult{}
	timeout := pick(opts.PerProviderTimeout, o.config.SourceTimeout)
	meta := observe.ProviderMeta{Kind: observe.KindSource, Op: OpDetails}

	part, name, err := firstSuccess(ctx, o, o.sources, opts.Hint, meta, timeout, &res.Attempts,
		func(ctx context.Context, src provider.PartSource) (provider.NormalizedResult, bool) {
			if c, ok := src.(cachedResolver); ok {
				return c.CachedDetails(ctx, identifier)
			}
			return provider.NormalizedResult{}, false
		},
		func(ctx context.Context, src provider.PartSource) (provider.NormalizedResult, error) {
			return src.GetPartDetails(ctx, identifier)
		})
	switch {
	case err == nil:
		if part.SourceProvider == "" {
			part.SourceProvider = name
		}
		res.Result = part
	case errors.Is(err, errAllProvidersExhausted):
		o.degraded(ctx, OpDetails, &res.Attempts)
		res.Result = DegradedPart(identifier)
		res.Degraded = true
	default:
		return nil, err
	}
	return res, nil
}

// Compare asks generators, in priority order, to compare a and b. If none
// answers, the result is a templated comparison built from the parts
// themselves.
func (o *Orchestrator) Compare(ctx context.Context, a, b provider.NormalizedResult, opts CompareOptions) (*CompareResult, error) {
	if o.generators == nil || o.generators.Len() == 0 {
		return nil, ErrNoProviders
	}
	release, err := o.admit(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	res := &CompareResult{}
	timeout := pick(opts.PerProviderTimeout, o.config.GeneratorTimeout)
	meta := observe.ProviderMeta{Kind: observe.KindGenerator, Op: OpCompare}
	req := provider.ComparisonRequest{A: a, B: b, Focus: opts.Focus}

	out, name, err := firstSuccess(ctx, o, o.generators, opts.Hint, meta, timeout, &res.Attempts,
		func(ctx context.Context, g provider.Generator) (provider.Comparison, bool) {
			if c, ok := g.(cachedComparer); ok {
				return c.CachedComparison(ctx, req)
			}
			return provider.Comparison{}, false
		},
		func(ctx context.Context, g provider.Generator) (provider.Comparison, error) {
			return g.Generate(ctx, req)
		})
	switch {
	case err == nil:
		out.SourceProvider = name
		out.Degraded = false
		res.Comparison = out
	case errors.Is(err, errAllProvidersExhausted):
		o.degraded(ctx, OpCompare, &res.Attempts)
		res.Comparison = DegradedComparison(req)
		res.Degraded = true
	default:
		return nil, err
	}
	return res, nil
}

// firstSuccess walks reg in order and returns the first successful answer
// together with the provider name. A candidate whose cached answer is found
// by lookup is not called. It returns errAllProvidersExhausted when every
// candidate was skipped or failed, or ctx.Err() if the caller gave up.
func firstSuccess[A candidate, T any](
	ctx context.Context,
	o *Orchestrator,
	reg *registry.Registry[A],
	hint string,
	meta observe.ProviderMeta,
	timeout time.Duration,
	trail *Attempts,
	lookup func(context.Context, A) (T, bool),
	call func(context.Context, A) (T, error),
) (T, string, error) {
	var zero T
	for _, name := range reg.OrderedNames(hint) {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}
		entry, ok := reg.Entry(name)
		if !ok {
			continue
		}
		meta.Name = name
		if !o.usable(ctx, reg.Tracker(), meta, entry.Adapter) {
			trail.Skipped = append(trail.Skipped, name)
			continue
		}

		trail.ProvidersTried = append(trail.ProvidersTried, name)
		if v, ok := lookup(ctx, entry.Adapter); ok {
			o.servedFromCache(ctx, meta)
			return v, name, nil
		}
		v, err := attempt(ctx, o, reg.Tracker(), meta, timeout, func(ctx context.Context) (T, error) {
			return call(ctx, entry.Adapter)
		})
		if err == nil {
			return v, name, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, "", ctxErr
		}
		trail.fail(name, err)
	}
	return zero, "", errAllProvidersExhausted
}

// attempt runs fn through the middleware and executor, then records the
// outcome with tracker. Attempts cut short by the caller's context are not
// held against the provider.
func attempt[T any](
	ctx context.Context,
	o *Orchestrator,
	tracker *health.Tracker,
	meta observe.ProviderMeta,
	timeout time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	var out T
	start := o.clock.Now()

	err := o.mw.Wrap(func(ctx context.Context, meta observe.ProviderMeta) error {
		v, err := resilience.Run(ctx, o.exec, meta.Name, timeout, fn)
		out = v
		return err
	})(ctx, meta)

	if err != nil && ctx.Err() != nil {
		return out, err
	}
	_ = tracker.Record(provider.AttemptOutcome{
		Provider: meta.Name,
		Success:  err == nil,
		Duration: o.clock.Now().Sub(start),
		Kind:     provider.Classify(err),
	})
	return out, err
}

// Adapters with a response cache expose it so that a stored answer is
// returned without an attempt: no spacing, no retries, no health outcome.
type (
	cachedSearcher interface {
		CachedSearch(ctx context.Context, query, category string, limit int) ([]provider.NormalizedResult, bool)
	}
	cachedResolver interface {
		CachedDetails(ctx context.Context, id string) (provider.NormalizedResult, bool)
	}
	cachedComparer interface {
		CachedComparison(ctx context.Context, req provider.ComparisonRequest) (provider.Comparison, bool)
	}
)

func (o *Orchestrator) servedFromCache(ctx context.Context, meta observe.ProviderMeta) {
	o.mw.Logger().WithProvider(meta).Debug(ctx, "served from cache")
}

// candidate is the part of the adapter contract shared by sources and
// generators.
type candidate interface {
	IsAvailable(ctx context.Context) bool
}

func (o *Orchestrator) usable(ctx context.Context, tracker *health.Tracker, meta observe.ProviderMeta, adapter candidate) bool {
	log := o.mw.Logger().WithProvider(meta)
	if !tracker.IsUsable(meta.Name) {
		log.Debug(ctx, "provider skipped", observe.Field{Key: "reason", Value: "unhealthy"})
		return false
	}
	if !adapter.IsAvailable(ctx) {
		log.Debug(ctx, "provider skipped", observe.Field{Key: "reason", Value: "unavailable"})
		return false
	}
	return true
}

func (o *Orchestrator) degraded(ctx context.Context, op string, trail *Attempts) {
	o.mw.Metrics().RecordDegraded(ctx, op)
	o.mw.Logger().Warn(ctx, "all providers exhausted, returning degraded result",
		observe.Field{Key: "op", Value: op},
		observe.Field{Key: "providers_tried", Value: len(trail.ProvidersTried)},
		observe.Field{Key: "providers_skipped", Value: len(trail.Skipped)},
	)
}

func (o *Orchestrator) admit(ctx context.Context) (func(), error) {
	if o.config.Bulkhead == nil {
		return func() {}, nil
	}
	if err := o.config.Bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	return o.config.Bulkhead.Release, nil
}

func pick(override, fallback time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return fallback
}

func capNames(names []string, max int) []string {
	if max > 0 && len(names) > max {
		return names[:max]
	}
	return names
}

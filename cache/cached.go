package cache

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/partsource/provider"
)

// Options configures the caching decorators.
type Options struct {
	// Provider is the registered name used as the cache namespace.
	Provider string

	// Store holds the responses. A nil store disables caching.
	Store Store

	// Keyer derives identifiers for searches and comparisons.
	// Default: HashKeyer
	Keyer Keyer

	// Policy bounds the TTL.
	// Default: DefaultPolicy()
	Policy *Policy

	// TTL is this provider's own entry lifetime, capped by Policy.MaxTTL.
	// Default: Policy.DefaultTTL
	TTL time.Duration

	// FetchTimeout bounds a shared miss. The fetch runs detached from the
	// callers waiting on it, so one caller giving up does not fail the rest.
	// Default: 30s
	FetchTimeout time.Duration

	// OnLookup is called after every cache consultation.
	OnLookup func(provider, op string, hit bool)
}

func (o *Options) applyDefaults() {
	if o.Keyer == nil {
		o.Keyer = HashKeyer{}
	}
	if o.Policy == nil {
		p := DefaultPolicy()
		o.Policy = &p
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 30 * time.Second
	}
}

func (o *Options) enabled() bool {
	return o.Store != nil && o.Policy.Enabled()
}

func (o *Options) lookup(op string, hit bool) {
	if o.OnLookup != nil {
		o.OnLookup(o.Provider, op, hit)
	}
}

// peek returns the stored value for identifier without calling out. Misses
// are not reported to OnLookup; through reports them when it fetches.
func peek[T any](ctx context.Context, o *Options, op, identifier string) (T, bool) {
	var zero T
	b, ok := o.Store.Get(ctx, identifier, o.Provider)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return zero, false
	}
	o.lookup(op, true)
	return v, true
}

// through consults the store for identifier, and on a miss runs fetch once
// per identifier across concurrent callers and stores a successful result.
// Errors are never cached. Each caller waits on its own ctx; the shared
// fetch is bounded by FetchTimeout instead.
func through[T any](ctx context.Context, o *Options, group *singleflight.Group, op, identifier string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := peek[T](ctx, o, op, identifier); ok {
		return v, nil
	}
	o.lookup(op, false)

	ch := group.DoChan(identifier, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.FetchTimeout)
		defer cancel()

		v, err := fetch(fctx)
		if err != nil {
			return v, err
		}
		if b, merr := json.Marshal(v); merr == nil {
			_ = o.Store.Put(fctx, identifier, o.Provider, b, o.Policy.TTL(o.TTL))
		}
		return v, nil
	})

	select {
	case r := <-ch:
		v, _ := r.Val.(T)
		return v, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// CachedSource memoizes a PartSource.
type CachedSource struct {
	inner provider.PartSource
	opts  Options
	group singleflight.Group
}

// NewCachedSource wraps inner.
func NewCachedSource(inner provider.PartSource, opts Options) *CachedSource {
	opts.applyDefaults()
	return &CachedSource{inner: inner, opts: opts}
}

// IsAvailable delegates to the wrapped source.
func (c *CachedSource) IsAvailable(ctx context.Context) bool {
	return c.inner.IsAvailable(ctx)
}

func (c *CachedSource) searchKey(query, category string, limit int) (string, bool) {
	if !c.opts.enabled() {
		return "", false
	}
	id, err := c.opts.Keyer.Key("search", SearchInput(query, category, limit))
	return id, err == nil
}

func (c *CachedSource) detailsKey(id string) (string, bool) {
	if !c.opts.enabled() || ValidateKey(id) != nil {
		return "", false
	}
	return "part:" + id, true
}

// SearchParts serves repeated searches from the store.
func (c *CachedSource) SearchParts(ctx context.Context, query, category string, limit int) ([]provider.NormalizedResult, error) {
	id, ok := c.searchKey(query, category, limit)
	if !ok {
		return c.inner.SearchParts(ctx, query, category, limit)
	}

	res, err := through(ctx, &c.opts, &c.group, "search", id, func(ctx context.Context) ([]provider.NormalizedResult, error) {
		return c.inner.SearchParts(ctx, query, category, limit)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(res), nil
}

// CachedSearch returns a stored search answer without calling the wrapped
// source.
func (c *CachedSource) CachedSearch(ctx context.Context, query, category string, limit int) ([]provider.NormalizedResult, bool) {
	id, ok := c.searchKey(query, category, limit)
	if !ok {
		return nil, false
	}
	return peek[[]provider.NormalizedResult](ctx, &c.opts, "search", id)
}

// GetPartDetails serves repeated lookups from the store.
func (c *CachedSource) GetPartDetails(ctx context.Context, id string) (provider.NormalizedResult, error) {
	key, ok := c.detailsKey(id)
	if !ok {
		return c.inner.GetPartDetails(ctx, id)
	}
	return through(ctx, &c.opts, &c.group, "details", key, func(ctx context.Context) (provider.NormalizedResult, error) {
		return c.inner.GetPartDetails(ctx, id)
	})
}

// CachedDetails returns stored part details without calling the wrapped
// source.
func (c *CachedSource) CachedDetails(ctx context.Context, id string) (provider.NormalizedResult, bool) {
	key, ok := c.detailsKey(id)
	if !ok {
		return provider.NormalizedResult{}, false
	}
	return peek[provider.NormalizedResult](ctx, &c.opts, "details", key)
}

// CachedGenerator memoizes a Generator.
type CachedGenerator struct {
	inner provider.Generator
	opts  Options
	group singleflight.Group
}

// NewCachedGenerator wraps inner.
func NewCachedGenerator(inner provider.Generator, opts Options) *CachedGenerator {
	opts.applyDefaults()
	return &CachedGenerator{inner: inner, opts: opts}
}

// IsAvailable delegates to the wrapped generator.
func (c *CachedGenerator) IsAvailable(ctx context.Context) bool {
	return c.inner.IsAvailable(ctx)
}

func (c *CachedGenerator) key(req provider.ComparisonRequest) (string, bool) {
	if !c.opts.enabled() {
		return "", false
	}
	id, err := c.opts.Keyer.Key("compare", CompareInput(req))
	return id, err == nil
}

// CachedComparison returns a stored comparison without calling the wrapped
// generator.
func (c *CachedGenerator) CachedComparison(ctx context.Context, req provider.ComparisonRequest) (provider.Comparison, bool) {
	id, ok := c.key(req)
	if !ok {
		return provider.Comparison{}, false
	}
	return peek[provider.Comparison](ctx, &c.opts, "compare", id)
}

// Generate serves repeated comparisons of the same pair from the store.
func (c *CachedGenerator) Generate(ctx context.Context, req provider.ComparisonRequest) (provider.Comparison, error) {
	id, ok := c.key(req)
	if !ok {
		return c.inner.Generate(ctx, req)
	}

	return through(ctx, &c.opts, &c.group, "compare", id, func(ctx context.Context) (provider.Comparison, error) {
		return c.inner.Generate(ctx, req)
	})
}

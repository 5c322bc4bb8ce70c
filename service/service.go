package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/partsource/adapters/catalog"
	"github.com/jonwraymond/partsource/adapters/fixture"
	"github.com/jonwraymond/partsource/adapters/gemini"
	"github.com/jonwraymond/partsource/adapters/scrape"
	"github.com/jonwraymond/partsource/cache"
	"github.com/jonwraymond/partsource/clock"
	"github.com/jonwraymond/partsource/config"
	"github.com/jonwraymond/partsource/fallback"
	"github.com/jonwraymond/partsource/health"
	"github.com/jonwraymond/partsource/observe"
	"github.com/jonwraymond/partsource/provider"
	"github.com/jonwraymond/partsource/registry"
	"github.com/jonwraymond/partsource/resilience"
)

// Option customizes New.
type Option func(*options)

type options struct {
	clock      clock.Clock
	observer   observe.Observer
	store      cache.Store
	sources    []extra[provider.PartSource]
	generators []extra[provider.Generator]
}

type extra[A any] struct {
	name     string
	adapter  A
	priority int
}

// WithClock sets the time source of every component.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithObserver uses obs instead of building one from the observe config.
// The caller keeps ownership; Close does not shut it down.
func WithObserver(obs observe.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithStore uses store instead of the configured cache backend. The caller
// keeps ownership; Close does not close it.
func WithStore(store cache.Store) Option {
	return func(o *options) { o.store = store }
}

// WithSource registers an adapter in addition to the configured sources.
func WithSource(name string, src provider.PartSource, priority int) Option {
	return func(o *options) {
		o.sources = append(o.sources, extra[provider.PartSource]{name, src, priority})
	}
}

// WithGenerator registers an adapter in addition to the configured
// generators.
func WithGenerator(name string, gen provider.Generator, priority int) Option {
	return func(o *options) {
		o.generators = append(o.generators, extra[provider.Generator]{name, gen, priority})
	}
}

// Service is a fully wired partsource instance.
//
// Contract:
//   - Concurrency: safe for concurrent use after New returns.
//   - Lifecycle: Run may be called once; Close releases owned resources.
type Service struct {
	config *config.Config
	clock  clock.Clock

	observer   observe.Observer
	middleware *observe.Middleware
	logger     observe.Logger

	store    cache.Store
	spacer   *resilience.Spacer
	bulkhead *resilience.Bulkhead

	sources      *registry.Registry[provider.PartSource]
	generators   *registry.Registry[provider.Generator]
	orchestrator *fallback.Orchestrator
	health       *health.Aggregator

	closers []func(context.Context) error
}

// New builds a Service from cfg. cfg is expected to be loaded through
// config.Load or at least to have had defaults applied.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{config: cfg, clock: clock.OrReal(o.clock)}

	s.observer = o.observer
	if s.observer == nil {
		obs, err := observe.NewObserver(ctx, cfg.Observe)
		if err != nil {
			return nil, fmt.Errorf("service: observer: %w", err)
		}
		s.observer = obs
		s.closers = append(s.closers, obs.Shutdown)
	}
	mw, err := observe.MiddlewareFromObserver(s.observer)
	if err != nil {
		_ = s.Close(ctx)
		return nil, fmt.Errorf("service: middleware: %w", err)
	}
	s.middleware = mw
	s.logger = mw.Logger()

	s.store = o.store
	if s.store == nil {
		store, err := openStore(cfg.Cache, s.clock)
		if err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		if store != nil {
			s.store = store
			s.closers = append(s.closers, func(context.Context) error { return store.Close() })
		}
	}

	s.spacer = resilience.NewSpacer(resilience.SpacerConfig{
		MinInterval: cfg.Spacing.MinInterval.Duration(),
		MaxWait:     cfg.Spacing.MaxWait.Duration(),
		Clock:       s.clock,
	})

	s.sources = registry.New[provider.PartSource](s.newTracker(observe.KindSource, cfg.Sources.Threshold))
	s.generators = registry.New[provider.Generator](s.newTracker(observe.KindGenerator, cfg.Generators.Threshold))

	if err := s.registerSources(ctx, cfg.Sources.Providers, o.sources); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	if err := s.registerGenerators(ctx, cfg.Generators.Providers, o.generators); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay.Duration(),
		MaxDelay:    cfg.Retry.MaxDelay.Duration(),
		Jitter:      cfg.Retry.Jitter,
		RetryIf:     provider.IsRetryable,
		Clock:       s.clock,
	})
	exec := resilience.NewExecutor(
		resilience.WithSpacer(s.spacer),
		resilience.WithRetry(retry),
		resilience.WithTimeoutConfig(resilience.NewTimeout(resilience.TimeoutConfig{Clock: s.clock})),
	)

	if cfg.Bulkhead.MaxConcurrent > 0 {
		s.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.Bulkhead.MaxConcurrent,
			MaxWait:       cfg.Bulkhead.MaxWait.Duration(),
			Clock:         s.clock,
		})
	}

	s.orchestrator = fallback.New(fallback.Config{
		Executor:         exec,
		SourceTimeout:    cfg.Sources.Timeout.Duration(),
		GeneratorTimeout: cfg.Generators.Timeout.Duration(),
		Bulkhead:         s.bulkhead,
		Middleware:       s.middleware,
		Clock:            s.clock,
	}, s.sources, s.generators)

	s.health = health.NewAggregator(health.AggregatorConfig{Clock: s.clock})
	s.health.Register(health.NewTrackerChecker("sources", s.sources.Tracker()))
	if s.generators.Len() > 0 {
		s.health.Register(health.NewTrackerChecker("generators", s.generators.Tracker()))
	}
	if s.store != nil {
		s.health.Register(cache.NewChecker("cache", s.store))
	}

	s.logger.Info(ctx, "service ready",
		observe.Field{Key: "sources", Value: s.sources.Len()},
		observe.Field{Key: "generators", Value: s.generators.Len()},
		observe.Field{Key: "cache", Value: cfg.Cache.Backend},
	)
	return s, nil
}

func openStore(cfg config.CacheConfig, c clock.Clock) (cache.Store, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return nil, nil
	case config.CacheLevelDB:
		store, err := cache.OpenLevelDB(cfg.Path, c)
		if err != nil {
			return nil, fmt.Errorf("service: cache: %w", err)
		}
		return store, nil
	case config.CacheRedis:
		return cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}), nil
	case config.CacheMemory, "":
		return cache.NewMemoryStore(c), nil
	default:
		return nil, fmt.Errorf("service: cache: %w: %q", config.ErrUnknownType, cfg.Backend)
	}
}

func (s *Service) newTracker(kind string, threshold uint) *health.Tracker {
	return health.NewTracker(health.TrackerConfig{
		Threshold: threshold,
		Clock:     s.clock,
		OnStateChange: func(name string, from, to health.State) {
			s.logger.Warn(context.Background(), "provider state changed",
				observe.Field{Key: "provider.name", Value: name},
				observe.Field{Key: "provider.kind", Value: kind},
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()},
			)
		},
	})
}

func (s *Service) cacheOptions(name string, p config.ProviderConfig, timeout time.Duration) (cache.Options, bool) {
	if s.store == nil || !p.UsesCache() {
		return cache.Options{}, false
	}
	policy := cache.Policy{
		DefaultTTL: s.config.Cache.DefaultTTL.Duration(),
		MaxTTL:     s.config.Cache.MaxTTL.Duration(),
	}
	metrics := s.middleware.Metrics()
	return cache.Options{
		Provider:     name,
		Store:        s.store,
		Policy:       &policy,
		TTL:          p.CacheTTL.Duration(),
		FetchTimeout: timeout,
		OnLookup: func(name, op string, hit bool) {
			metrics.RecordCacheLookup(context.Background(), name, op, hit)
		},
	}, true
}

func (s *Service) registerSources(ctx context.Context, configured []config.ProviderConfig, extras []extra[provider.PartSource]) error {
	for _, p := range configured {
		if !p.IsEnabled() {
			continue
		}
		src, err := buildSource(p)
		if err != nil {
			return fmt.Errorf("service: source %q: %w", p.Name, err)
		}
		if opts, ok := s.cacheOptions(p.Name, p, s.config.Sources.Timeout.Duration()); ok {
			src = cache.NewCachedSource(src, opts)
		}
		if d := p.MinInterval.Duration(); d > 0 {
			s.spacer.SetInterval(p.Name, d)
		}
		if err := s.sources.Register(p.Name, src, p.Priority); err != nil {
			return fmt.Errorf("service: %w", err)
		}
		s.logger.Debug(ctx, "source registered",
			observe.Field{Key: "provider.name", Value: p.Name},
			observe.Field{Key: "type", Value: p.Type},
			observe.Field{Key: "priority", Value: p.Priority},
		)
	}
	for _, e := range extras {
		if err := s.sources.Register(e.name, e.adapter, e.priority); err != nil {
			return fmt.Errorf("service: %w", err)
		}
	}
	return nil
}

func (s *Service) registerGenerators(ctx context.Context, configured []config.ProviderConfig, extras []extra[provider.Generator]) error {
	for _, p := range configured {
		if !p.IsEnabled() {
			continue
		}
		gen, err := buildGenerator(ctx, p)
		if err != nil {
			return fmt.Errorf("service: generator %q: %w", p.Name, err)
		}
		if opts, ok := s.cacheOptions(p.Name, p, s.config.Generators.Timeout.Duration()); ok {
			gen = cache.NewCachedGenerator(gen, opts)
		}
		if d := p.MinInterval.Duration(); d > 0 {
			s.spacer.SetInterval(p.Name, d)
		}
		if err := s.generators.Register(p.Name, gen, p.Priority); err != nil {
			return fmt.Errorf("service: %w", err)
		}
		s.logger.Debug(ctx, "generator registered",
			observe.Field{Key: "provider.name", Value: p.Name},
			observe.Field{Key: "type", Value: p.Type},
			observe.Field{Key: "priority", Value: p.Priority},
		)
	}
	for _, e := range extras {
		if err := s.generators.Register(e.name, e.adapter, e.priority); err != nil {
			return fmt.Errorf("service: %w", err)
		}
	}
	return nil
}

func buildSource(p config.ProviderConfig) (provider.PartSource, error) {
	switch p.Type {
	case config.TypeCatalog:
		return catalog.New(catalog.Config{
			BaseURL:      p.BaseURL,
			APIKey:       p.APIKey,
			APIKeyHeader: p.APIKeyHeader,
			RequireKey:   p.RequireKey,
			Currency:     p.Currency,
		}), nil
	case config.TypeScrape:
		return scrape.New(scrape.Config{
			SearchURL: p.SearchURL,
			DetailURL: p.DetailURL,
			Currency:  p.Currency,
			Selectors: scrape.Selectors{
				Item:  p.Selectors["item"],
				Name:  p.Selectors["name"],
				Brand: p.Selectors["brand"],
				Price: p.Selectors["price"],
				Image: p.Selectors["image"],
				Specs: p.Selectors["specs"],
			},
		}), nil
	case config.TypeFixture:
		src, err := fixture.Load(p.Path)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownType, p.Type)
	}
}

func buildGenerator(ctx context.Context, p config.ProviderConfig) (provider.Generator, error) {
	switch p.Type {
	case config.TypeGemini:
		gen, err := gemini.New(ctx, gemini.Config{
			APIKey:      p.APIKey,
			Model:       p.Model,
			Temperature: p.Temperature,
			BaseURL:     p.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownType, p.Type)
	}
}

// Run drives the cache sweeper and the rehabilitation loops until ctx is
// done. Loops whose interval is zero are not started.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if interval := s.config.Cache.SweepInterval.Duration(); s.store != nil && interval > 0 {
		g.Go(func() error {
			cache.Sweep(ctx, s.store, interval, s.clock, func(removed int, err error) {
				if err != nil {
					s.logger.Error(ctx, "cache sweep failed", observe.Field{Key: "error", Value: err.Error()})
					return
				}
				s.logger.Debug(ctx, "cache swept", observe.Field{Key: "removed", Value: removed})
			})
			return nil
		})
	}

	if interval := s.config.Health.RehabilitateInterval.Duration(); interval > 0 {
		for kind, tracker := range map[string]*health.Tracker{
			observe.KindSource:    s.sources.Tracker(),
			observe.KindGenerator: s.generators.Tracker(),
		} {
			g.Go(func() error {
				tracker.Rehabilitate(ctx, interval, func(names []string) {
					s.logger.Info(ctx, "providers rehabilitated",
						observe.Field{Key: "provider.kind", Value: kind},
						observe.Field{Key: "providers", Value: names},
					)
				})
				return nil
			})
		}
	}

	return g.Wait()
}

// Close releases the resources New created. It is safe to call more than
// once.
func (s *Service) Close(ctx context.Context) error {
	closers := s.closers
	s.closers = nil

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the configuration the service was built from.
func (s *Service) Config() *config.Config { return s.config }

// Orchestrator returns the fallback orchestrator.
func (s *Service) Orchestrator() *fallback.Orchestrator { return s.orchestrator }

// Sources returns the part source registry.
func (s *Service) Sources() *registry.Registry[provider.PartSource] { return s.sources }

// Generators returns the generator registry.
func (s *Service) Generators() *registry.Registry[provider.Generator] { return s.generators }

// Health returns the health aggregator.
func (s *Service) Health() *health.Aggregator { return s.health }

// Observer returns the telemetry observer.
func (s *Service) Observer() observe.Observer { return s.observer }

// Logger returns the service logger.
func (s *Service) Logger() observe.Logger { return s.logger }

// Store returns the cache store, or nil when caching is disabled.
func (s *Service) Store() cache.Store { return s.store }

// ProviderStatus describes one registered provider.
type ProviderStatus struct {
	Name     string       `json:"name"`
	Kind     string       `json:"kind"`
	Priority int          `json:"priority"`
	Stats    health.Stats `json:"stats"`
}

// Providers lists sources then generators, each in priority order.
func (s *Service) Providers() []ProviderStatus {
	out := make([]ProviderStatus, 0, s.sources.Len()+s.generators.Len())
	for _, e := range s.sources.Entries() {
		out = append(out, ProviderStatus{Name: e.Name, Kind: observe.KindSource, Priority: e.Priority, Stats: e.Stats})
	}
	for _, e := range s.generators.Entries() {
		out = append(out, ProviderStatus{Name: e.Name, Kind: observe.KindGenerator, Priority: e.Priority, Stats: e.Stats})
	}
	return out
}

// ResetProviders marks the named providers healthy in whichever registry
// holds them. With no names every provider of both registries is reset.
func (s *Service) ResetProviders(ctx context.Context, names ...string) error {
	trackers := []*health.Tracker{s.sources.Tracker(), s.generators.Tracker()}

	if len(names) == 0 {
		for _, t := range trackers {
			if err := t.Reset(); err != nil {
				return fmt.Errorf("service: %w", err)
			}
		}
		s.logger.Info(ctx, "all providers reset")
		return nil
	}

	for _, name := range names {
		found := false
		for _, t := range trackers {
			if _, ok := t.Stats(name); !ok {
				continue
			}
			found = true
			if err := t.Reset(name); err != nil {
				return fmt.Errorf("service: %w", err)
			}
		}
		if !found {
			return fmt.Errorf("%w: %q", ErrUnknownProvider, name)
		}
		s.logger.Info(ctx, "provider reset", observe.Field{Key: "provider.name", Value: name})
	}
	return nil
}

// CacheStats reports cache counters for one provider, or for all providers
// when name is empty.
func (s *Service) CacheStats(ctx context.Context, name string) (cache.Stats, error) {
	if s.store == nil {
		return cache.Stats{}, ErrCacheDisabled
	}
	return s.store.Stats(ctx, name)
}

// SweepCache removes expired entries of one provider, or of all providers
// when name is empty.
func (s *Service) SweepCache(ctx context.Context, name string) (int, error) {
	if s.store == nil {
		return 0, ErrCacheDisabled
	}
	start := s.clock.Now()
	removed, err := s.store.SweepExpired(ctx, name)
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "cache swept",
		observe.Field{Key: "provider", Value: name},
		observe.Field{Key: "removed", Value: removed},
		observe.Field{Key: "duration_ms", Value: s.clock.Now().Sub(start).Milliseconds()},
	)
	return removed, nil
}

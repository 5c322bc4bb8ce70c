package fallback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/partsource/clock"
	"github.com/jonwraymond/partsource/health"
	"github.com/jonwraymond/partsource/observe"
	"github.com/jonwraymond/partsource/provider"
	"github.com/jonwraymond/partsource/registry"
	"github.com/jonwraymond/partsource/resilience"
)

func part(name, brand string) provider.NormalizedResult {
	return provider.NormalizedResult{
		ID:    strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Name:  name,
		Brand: brand,
	}
}

func returning(results ...provider.NormalizedResult) provider.SourceFuncs {
	return provider.SourceFuncs{
		Search: func(ctx context.Context, q, c string, limit int) ([]provider.NormalizedResult, error) {
			return results, nil
		},
	}
}

func failing(kind provider.ErrorKind, calls *int32) provider.SourceFuncs {
	return provider.SourceFuncs{
		Search: func(ctx context.Context, q, c string, limit int) ([]provider.NormalizedResult, error) {
			if calls != nil {
				atomic.AddInt32(calls, 1)
			}
			return nil, provider.Errorf(kind, "backend said no")
		},
		Details: func(ctx context.Context, id string) (provider.NormalizedResult, error) {
			if calls != nil {
				atomic.AddInt32(calls, 1)
			}
			return provider.NormalizedResult{}, provider.Errorf(kind, "backend said no")
		},
	}
}

type named struct {
	name string
	src  provider.PartSource
}

func sources(t *testing.T, threshold uint, providers ...named) *registry.Registry[provider.PartSource] {
	t.Helper()
	reg := registry.New[provider.PartSource](health.NewTracker(health.TrackerConfig{Threshold: threshold}))
	for i, p := range providers {
		if err := reg.Register(p.name, p.src, i+1); err != nil {
			t.Fatalf("Register(%s) error = %v", p.name, err)
		}
	}
	return reg
}

// singleShot runs each provider once, without retries.
func singleShot() Config {
	return Config{Executor: resilience.NewExecutor()}
}

func names(results []provider.NormalizedResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Name
	}
	return out
}

func TestNew_Defaults(t *testing.T) {
	o := New(Config{}, nil, nil)

	if o.config.SourceTimeout != 8*time.Second {
		t.Errorf("SourceTimeout = %v, want 8s", o.config.SourceTimeout)
	}
	if o.config.GeneratorTimeout != 30*time.Second {
		t.Errorf("GeneratorTimeout = %v, want 30s", o.config.GeneratorTimeout)
	}
	if o.config.DefaultLimit != 10 {
		t.Errorf("DefaultLimit = %d, want 10", o.config.DefaultLimit)
	}
	if o.exec == nil || o.mw == nil || o.clock == nil {
		t.Error("New() left executor, middleware or clock nil")
	}
}

func TestSearch_NoProviders(t *testing.T) {
	ctx := context.Background()

	if _, err := New(singleShot(), nil, nil).Search(ctx, "rtx", "gpu", 5, SearchOptions{}); !errors.Is(err, ErrNoProviders) {
		t.Errorf("Search(nil registry) error = %v, want ErrNoProviders", err)
	}
	empty := registry.New[provider.PartSource](nil)
	if _, err := New(singleShot(), empty, nil).Search(ctx, "rtx", "gpu", 5, SearchOptions{}); !errors.Is(err, ErrNoProviders) {
		t.Errorf("Search(empty registry) error = %v, want ErrNoProviders", err)
	}
}

func TestSearch_SkipsUnhealthyProvider(t *testing.T) {
	var aCalls int32
	reg := sources(t, 3,
		named{"a", failing(provider.KindPermanent, &aCalls)},
		named{"b", returning(part("RTX 4070", "NVIDIA"))},
	)
	o := New(singleShot(), reg, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		res, err := o.Search(ctx, "rtx", "gpu", 5, SearchOptions{})
		if err != nil {
			t.Fatalf("Search() #%d error = %v", i+1, err)
		}
		if !res.Success || len(res.Results) != 1 {
			t.Fatalf("Search() #%d = %+v, want one result from b", i+1, res)
		}
	}

	stats, _ := reg.Tracker().Stats("a")
	if stats.Healthy {
		t.Fatalf("a healthy after 4 failures with threshold 3: %+v", stats)
	}
	if stats.ErrorCount != 4 {
		t.Errorf("a ErrorCount = %d, want 4", stats.ErrorCount)
	}

	res, err := o.Search(ctx, "rtx", "gpu", 5, SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, res.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b"}, res.ProvidersTried); diff != "" {
		t.Errorf("ProvidersTried mismatch (-want +got):\n%s", diff)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Errors = %+v, want none for a skipped provider", res.Errors)
	}
	if got := atomic.LoadInt32(&aCalls); got != 4 {
		t.Errorf("a called %d times, want 4", got)
	}
}

func TestSearch_SkipsUnavailableWithoutRecording(t *testing.T) {
	off := returning(part("RTX 4070", "NVIDIA"))
	off.Available = func(context.Context) bool { return false }

	reg := sources(t, 3,
		named{"off", off},
		named{"on", returning(part("RX 7800 XT", "AMD"))},
	)
	res, err := New(singleShot(), reg, nil).Search(context.Background(), "gpu", "", 5, SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if diff := cmp.Diff([]string{"off"}, res.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}
	stats, _ := reg.Tracker().Stats("off")
	if stats.ErrorCount != 0 || stats.SuccessCount != 0 {
		t.Errorf("off stats = %+v, want untouched", stats)
	}
}

func TestSearch_LimitBoundsResults(t *testing.T) {
	batch := func(prefix string) provider.SourceFuncs {
		var out []provider.NormalizedResult
		for i := 1; i <= 5; i++ {
			out = append(out, part(fmt.Sprintf("%s part %d", prefix, i), prefix))
		}
		return returning(out...)
	}
	reg := sources(t, 5,
		named{"a", batch("alpha")},
		named{"b", batch("beta")},
		named{"c", batch("gamma")},
	)
	o := New(singleShot(), reg, nil)

	tests := []struct {
		name      string
		opts      SearchOptions
		wantTried []string
		wantTotal int
	}{
		{"stops at limit", SearchOptions{}, []string{"a"}, 5},
		{"continue on limit", SearchOptions{ContinueOnLimit: true}, []string{"a", "b", "c"}, 15},
		{"max providers", SearchOptions{ContinueOnLimit: true, MaxProviders: 2}, []string{"a", "b"}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := o.Search(context.Background(), "part", "", 5, tt.opts)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(res.Results) != 5 {
				t.Errorf("len(Results) = %d, want 5", len(res.Results))
			}
			if diff := cmp.Diff(tt.wantTried, res.ProvidersTried); diff != "" {
				t.Errorf("ProvidersTried mismatch (-want +got):\n%s", diff)
			}
			if res.TotalFound != tt.wantTotal {
				t.Errorf("TotalFound = %d, want %d", res.TotalFound, tt.wantTotal)
			}
		})
	}
}

func TestSearch_DefaultLimit(t *testing.T) {
	var many []provider.NormalizedResult
	for i := 0; i < 25; i++ {
		many = append(many, part(fmt.Sprintf("part %d", i), "acme"))
	}
	reg := sources(t, 5, named{"a", returning(many...)})

	res, err := New(Config{Executor: resilience.NewExecutor(), DefaultLimit: 7}, reg, nil).
		Search(context.Background(), "part", "", 0, SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Results) != 7 {
		t.Errorf("len(Results) = %d, want 7", len(res.Results))
	}
}

func TestSearch_Dedupe(t *testing.T) {
	reg := sources(t, 5,
		named{"a", returning(part("RTX 4070", "NVIDIA"))},
		named{"b", returning(part(" rtx 4070 ", "nvidia"), part("RX 7800 XT", "AMD"))},
	)
	o := New(singleShot(), reg, nil)
	off := false

	tests := []struct {
		name        string
		opts        SearchOptions
		wantNames   []string
		wantRemoved int
	}{
		{"default", SearchOptions{}, []string{"RTX 4070", "RX 7800 XT"}, 1},
		{"disabled", SearchOptions{Dedupe: &off}, []string{"RTX 4070", " rtx 4070 ", "RX 7800 XT"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := o.Search(context.Background(), "gpu", "", 10, tt.opts)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if diff := cmp.Diff(tt.wantNames, names(res.Results)); diff != "" {
				t.Errorf("Results mismatch (-want +got):\n%s", diff)
			}
			if res.DuplicatesRemoved != tt.wantRemoved {
				t.Errorf("DuplicatesRemoved = %d, want %d", res.DuplicatesRemoved, tt.wantRemoved)
			}
			if res.TotalFound != 3 {
				t.Errorf("TotalFound = %d, want 3", res.TotalFound)
			}
			if res.Results[0].SourceProvider != "a" {
				t.Errorf("first result SourceProvider = %q, want a", res.Results[0].SourceProvider)
			}
		})
	}
}

func TestSearch_HintAppliesToOneCall(t *testing.T) {
	reg := sources(t, 5,
		named{"a", returning(part("from a", "x"))},
		named{"b", returning(part("from b", "x"))},
	)
	o := New(singleShot(), reg, nil)
	ctx := context.Background()

	hinted, err := o.Search(ctx, "q", "", 1, SearchOptions{Hint: "b"})
	if err != nil {
		t.Fatalf("Search(hint) error = %v", err)
	}
	if diff := cmp.Diff([]string{"b"}, hinted.ProvidersTried); diff != "" {
		t.Errorf("hinted ProvidersTried mismatch (-want +got):\n%s", diff)
	}

	plain, err := o.Search(ctx, "q", "", 1, SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, plain.ProvidersTried); diff != "" {
		t.Errorf("ProvidersTried after hint mismatch (-want +got):\n%s", diff)
	}
}

func TestSearch_TimeoutRecordedAndNextTried(t *testing.T) {
	slow := provider.SourceFuncs{
		Search: func(ctx context.Context, q, c string, limit int) ([]provider.NormalizedResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	reg := sources(t, 5,
		named{"slow", slow},
		named{"fast", returning(part("RTX 4070", "NVIDIA"))},
	)
	o := New(singleShot(), reg, nil)

	start := time.Now()
	res, err := o.Search(context.Background(), "rtx", "", 5, SearchOptions{PerProviderTimeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Search() took %v, want bounded by the per-provider timeout", elapsed)
	}

	if diff := cmp.Diff([]string{"slow", "fast"}, res.ProvidersTried); diff != "" {
		t.Errorf("ProvidersTried mismatch (-want +got):\n%s", diff)
	}
	if len(res.Errors) != 1 || res.Errors[0].Kind != provider.KindTimeout {
		t.Fatalf("Errors = %+v, want one timeout", res.Errors)
	}
	if len(res.Results) != 1 {
		t.Errorf("len(Results) = %d, want 1", len(res.Results))
	}
	stats, _ := reg.Tracker().Stats("slow")
	if stats.LastErrorKind != provider.KindTimeout || stats.ErrorCount != 1 {
		t.Errorf("slow stats = %+v, want one timeout failure", stats)
	}
}

func TestSearch_AllFail(t *testing.T) {
	reg := sources(t, 5,
		named{"a", failing(provider.KindPermanent, nil)},
		named{"b", failing(provider.KindNotFound, nil)},
	)
	res, err := New(singleShot(), reg, nil).Search(context.Background(), "q", "", 5, SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v, want failures in the result", err)
	}

	if res.Success {
		t.Error("Success = true, want false with no results and errors")
	}
	if res.Results == nil || len(res.Results) != 0 {
		t.Errorf("Results = %#v, want empty non-nil slice", res.Results)
	}
	want := []ProviderFailure{
		{Provider: "a", Kind: provider.KindPermanent},
		{Provider: "b", Kind: provider.KindNotFound},
	}
	if diff := cmp.Diff(want, res.Errors, cmp.Comparer(func(x, y ProviderFailure) bool {
		return x.Provider == y.Provider && x.Kind == y.Kind
	})); diff != "" {
		t.Errorf("Errors mismatch (-want +got):\n%s", diff)
	}
	for _, f := range res.Errors {
		if f.Message == "" {
			t.Errorf("failure for %s has empty message", f.Provider)
		}
	}
}

func TestSearch_EmptyIsSuccess(t *testing.T) {
	reg := sources(t, 5, named{"a", returning()})

	res, err := New(singleShot(), reg, nil).Search(context.Background(), "q", "", 5, SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !res.Success {
		t.Error("Success = false, want true when no provider failed")
	}
}

func TestSearch_RetriesTransientOnly(t *testing.T) {
	var flakyCalls, brokenCalls int32
	flaky := provider.SourceFuncs{
		Search: func(ctx context.Context, q, c string, limit int) ([]provider.NormalizedResult, error) {
			if atomic.AddInt32(&flakyCalls, 1) < 3 {
				return nil, provider.Errorf(provider.KindTransient, "502")
			}
			return []provider.NormalizedResult{part("RTX 4070", "NVIDIA")}, nil
		},
	}
	reg := sources(t, 5,
		named{"broken", failing(provider.KindPermanent, &brokenCalls)},
		named{"flaky", flaky},
	)
	exec := resilience.NewExecutor(resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		RetryIf:     provider.IsRetryable,
	})))

	res, err := New(Config{Executor: exec}, reg, nil).Search(context.Background(), "rtx", "", 5, SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Results) != 1 {
		t.Errorf("len(Results) = %d, want 1", len(res.Results))
	}
	if got := atomic.LoadInt32(&brokenCalls); got != 1 {
		t.Errorf("permanent failure attempted %d times, want 1", got)
	}
	if got := atomic.LoadInt32(&flakyCalls); got != 3 {
		t.Errorf("transient failure attempted %d times, want 3", got)
	}
	stats, _ := reg.Tracker().Stats("flaky")
	if stats.SuccessCount != 1 || stats.ErrorCount != 0 {
		t.Errorf("flaky stats = %+v, want one success and no errors", stats)
	}
}

func TestSearch_ContextCancelled(t *testing.T) {
	t.Run("before call", func(t *testing.T) {
		reg := sources(t, 5, named{"a", returning(part("x", "y"))})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := New(singleShot(), reg, nil).Search(ctx, "q", "", 5, SearchOptions{}); !errors.Is(err, context.Canceled) {
			t.Errorf("Search() error = %v, want context.Canceled", err)
		}
	})

	t.Run("during attempt", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		cancelling := provider.SourceFuncs{
			Search: func(ctx context.Context, q, c string, limit int) ([]provider.NormalizedResult, error) {
				cancel()
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
		reg := sources(t, 5, named{"a", cancelling})

		if _, err := New(singleShot(), reg, nil).Search(ctx, "q", "", 5, SearchOptions{}); !errors.Is(err, context.Canceled) {
			t.Errorf("Search() error = %v, want context.Canceled", err)
		}
		stats, _ := reg.Tracker().Stats("a")
		if stats.ErrorCount != 0 {
			t.Errorf("a ErrorCount = %d, want 0 for a caller cancellation", stats.ErrorCount)
		}
	})
}

func TestSearch_BulkheadFull(t *testing.T) {
	bh := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 1})
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	reg := sources(t, 5, named{"a", returning(part("x", "y"))})
	o := New(Config{Executor: resilience.NewExecutor(), Bulkhead: bh}, reg, nil)

	if _, err := o.Search(context.Background(), "q", "", 5, SearchOptions{}); !errors.Is(err, resilience.ErrBulkheadFull) {
		t.Errorf("Search() error = %v, want ErrBulkheadFull", err)
	}

	bh.Release()
	if _, err := o.Search(context.Background(), "q", "", 5, SearchOptions{}); err != nil {
		t.Errorf("Search() after release error = %v", err)
	}
	if got := bh.Stats().Active; got != 0 {
		t.Errorf("bulkhead Active = %d, want 0", got)
	}
}

func TestSearch_StampsSourceProvider(t *testing.T) {
	stamped := part("RX 7800 XT", "AMD")
	stamped.SourceProvider = "upstream"
	reg := sources(t, 5, named{"a", returning(part("RTX 4070", "NVIDIA"), stamped)})

	res, err := New(singleShot(), reg, nil).Search(context.Background(), "q", "", 5, SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	got := []string{res.Results[0].SourceProvider, res.Results[1].SourceProvider}
	if diff := cmp.Diff([]string{"a", "upstream"}, got); diff != "" {
		t.Errorf("SourceProvider mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_FirstSuccess(t *testing.T) {
	found := provider.SourceFuncs{
		Details: func(ctx context.Context, id string) (provider.NormalizedResult, error) {
			return part("RTX 4070", "NVIDIA"), nil
		},
	}
	reg := sources(t, 5,
		named{"a", failing(provider.KindNotFound, nil)},
		named{"b", found},
		named{"c", failing(provider.KindPermanent, nil)},
	)

	res, err := New(singleShot(), reg, nil).Resolve(context.Background(), "rtx-4070", ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Degraded {
		t.Error("Degraded = true, want false")
	}
	if res.Result.SourceProvider != "b" {
		t.Errorf("SourceProvider = %q, want b", res.Result.SourceProvider)
	}
	if diff := cmp.Diff([]string{"a", "b"}, res.ProvidersTried); diff != "" {
		t.Errorf("ProvidersTried mismatch (-want +got):\n%s", diff)
	}
	if len(res.Errors) != 1 || res.Errors[0].Kind != provider.KindNotFound {
		t.Errorf("Errors = %+v, want one not_found", res.Errors)
	}
}

func TestResolve_DegradedWhenOnlyProviderUnhealthy(t *testing.T) {
	var calls int32
	reg := sources(t, 3, named{"a", failing(provider.KindTransient, &calls)})
	for i := 0; i < 4; i++ {
		if err := reg.Tracker().RecordFailure("a", provider.KindTransient); err != nil {
			t.Fatalf("RecordFailure() error = %v", err)
		}
	}

	var logs bytes.Buffer
	mw := observe.NewMiddleware(nil, nil, observe.NewLoggerWithWriter("debug", &logs))
	o := New(Config{Executor: resilience.NewExecutor(), Middleware: mw}, reg, nil)

	res, err := o.Resolve(context.Background(), "gpu-123", ResolveOptions{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if !res.Degraded {
		t.Error("Degraded = false, want true")
	}
	want := provider.NormalizedResult{ID: "gpu-123", Name: "gpu-123", SourceProvider: provider.NoneProvider}
	if diff := cmp.Diff(want, res.Result); diff != "" {
		t.Errorf("Result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a"}, res.Skipped); diff != "" {
		t.Errorf("Skipped mismatch (-want +got):\n%s", diff)
	}
	if len(res.ProvidersTried) != 0 {
		t.Errorf("ProvidersTried = %v, want none", res.ProvidersTried)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("unhealthy provider called %d times", got)
	}
	if !strings.Contains(logs.String(), "degraded") {
		t.Errorf("logs = %q, want a degraded warning", logs.String())
	}
}

func TestResolve_NoProviders(t *testing.T) {
	if _, err := New(singleShot(), nil, nil).Resolve(context.Background(), "x", ResolveOptions{}); !errors.Is(err, ErrNoProviders) {
		t.Errorf("Resolve() error = %v, want ErrNoProviders", err)
	}
}

func generators(t *testing.T, gens ...provider.Generator) *registry.Registry[provider.Generator] {
	t.Helper()
	reg := registry.New[provider.Generator](health.NewTracker(health.TrackerConfig{Threshold: 3}))
	for i, g := range gens {
		if err := reg.Register(fmt.Sprintf("g%d", i+1), g, i+1); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	return reg
}

func TestCompare_FirstGenerator(t *testing.T) {
	var gotFocus string
	gen := provider.GeneratorFunc(func(ctx context.Context, req provider.ComparisonRequest) (provider.Comparison, error) {
		gotFocus = req.Focus
		return provider.Comparison{Summary: "A wins", SourceProvider: "ignored"}, nil
	})
	down := provider.GeneratorFunc(func(ctx context.Context, req provider.ComparisonRequest) (provider.Comparison, error) {
		return provider.Comparison{}, provider.Errorf(provider.KindPermanent, "quota exhausted")
	})

	o := New(singleShot(), nil, generators(t, down, gen))
	res, err := o.Compare(context.Background(), part("RTX 4070", "NVIDIA"), part("RX 7800 XT", "AMD"), CompareOptions{Focus: "gaming"})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if res.Degraded || res.Comparison.Degraded {
		t.Error("Degraded = true, want false")
	}
	if res.Comparison.SourceProvider != "g2" {
		t.Errorf("SourceProvider = %q, want g2", res.Comparison.SourceProvider)
	}
	if gotFocus != "gaming" {
		t.Errorf("Focus = %q, want gaming", gotFocus)
	}
	if len(res.Errors) != 1 || res.Errors[0].Provider != "g1" {
		t.Errorf("Errors = %+v, want one failure from g1", res.Errors)
	}
}

func TestCompare_DegradedWhenExhausted(t *testing.T) {
	down := provider.GeneratorFunc(func(ctx context.Context, req provider.ComparisonRequest) (provider.Comparison, error) {
		return provider.Comparison{}, provider.Errorf(provider.KindPermanent, "quota exhausted")
	})
	a, b := part("RTX 4070", "NVIDIA"), part("RX 7800 XT", "AMD")

	res, err := New(singleShot(), nil, generators(t, down)).Compare(context.Background(), a, b, CompareOptions{})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if !res.Degraded {
		t.Error("Degraded = false, want true")
	}
	want := DegradedComparison(provider.ComparisonRequest{A: a, B: b})
	if diff := cmp.Diff(want, res.Comparison); diff != "" {
		t.Errorf("Comparison mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare_NoProviders(t *testing.T) {
	reg := sources(t, 5, named{"a", returning()})
	_, err := New(singleShot(), reg, nil).Compare(context.Background(), part("a", ""), part("b", ""), CompareOptions{})
	if !errors.Is(err, ErrNoProviders) {
		t.Errorf("Compare() error = %v, want ErrNoProviders", err)
	}
}

// stocked is a source whose response cache already holds answers.
type stocked struct {
	provider.SourceFuncs
	search  []provider.NormalizedResult
	details map[string]provider.NormalizedResult
}

func (s stocked) CachedSearch(context.Context, string, string, int) ([]provider.NormalizedResult, bool) {
	return s.search, s.search != nil
}

func (s stocked) CachedDetails(_ context.Context, id string) (provider.NormalizedResult, bool) {
	r, ok := s.details[id]
	return r, ok
}

func TestCachedAnswersSkipAttempt(t *testing.T) {
	var calls int32
	src := stocked{
		SourceFuncs: failing(provider.KindTransient, &calls),
		search:      []provider.NormalizedResult{part("RTX 4070", "NVIDIA")},
		details:     map[string]provider.NormalizedResult{"rtx-4070": part("RTX 4070", "NVIDIA")},
	}
	reg := sources(t, 5, named{"memo", src})

	// an hour of spacing on a clock nobody advances: any attempt would block
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	spacer := resilience.NewSpacer(resilience.SpacerConfig{MinInterval: time.Hour, Clock: fake})
	o := New(Config{Executor: resilience.NewExecutor(resilience.WithSpacer(spacer)), Clock: fake}, reg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		res, err := o.Search(ctx, "rtx", "gpu", 5, SearchOptions{})
		if err != nil {
			t.Fatalf("Search() #%d error = %v", i, err)
		}
		if got := names(res.Results); !cmp.Equal(got, []string{"RTX 4070"}) {
			t.Errorf("Search() #%d results = %v", i, got)
		}
	}
	res, err := o.Resolve(ctx, "rtx-4070", ResolveOptions{})
	if err != nil || res.Degraded || res.Result.SourceProvider != "memo" {
		t.Fatalf("Resolve() = %+v, %v; want memo answer", res, err)
	}

	if calls != 0 {
		t.Errorf("adapter calls = %d, want 0", calls)
	}
	st, _ := reg.Tracker().Stats("memo")
	if st.SuccessCount != 0 || st.ErrorCount != 0 {
		t.Errorf("tracker stats = %+v, want no recorded outcome", st)
	}
}

func TestCachedAnswerMiss_Attempts(t *testing.T) {
	var calls int32
	src := stocked{SourceFuncs: failing(provider.KindPermanent, &calls)}
	o := New(singleShot(), sources(t, 5, named{"memo", src}), nil)

	res, err := o.Resolve(context.Background(), "rtx-4070", ResolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Degraded || calls != 1 {
		t.Errorf("Degraded = %v, calls = %d; want true, 1", res.Degraded, calls)
	}
}

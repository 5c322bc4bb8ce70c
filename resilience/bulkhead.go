package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jonwraymond/partsource/clock"
)

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the number of searches, resolves and compares
	// allowed in flight at once.
	// Default: 10
	MaxConcurrent int

	// MaxWait is how long a caller queues for a slot before ErrBulkheadFull.
	// Default: 0 (reject at once)
	MaxWait time.Duration

	// Clock times MaxWait.
	// Default: clock.Real
	Clock clock.Clock
}

// Bulkhead caps concurrent orchestrator operations so that a burst of
// callers cannot fan out into an unbounded number of provider attempts.
type Bulkhead struct {
	capacity int
	maxWait  time.Duration
	clock    clock.Clock
	sem      *semaphore.Weighted

	mu       sync.Mutex
	active   int
	peak     int
	rejected int64
}

func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	return &Bulkhead{
		capacity: cfg.MaxConcurrent,
		maxWait:  cfg.MaxWait,
		clock:    clock.OrReal(cfg.Clock),
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// Acquire takes a slot, queueing for up to MaxWait. It returns ctx.Err()
// when the caller gives up first.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.sem.TryAcquire(1) {
		b.track(1)
		return nil
	}
	if b.maxWait <= 0 {
		return b.reject()
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-b.clock.After(b.maxWait):
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return b.reject()
	}
	b.track(1)
	return nil
}

// Release returns a slot taken by Acquire. Extra calls are ignored.
func (b *Bulkhead) Release() {
	b.mu.Lock()
	if b.active == 0 {
		b.mu.Unlock()
		return
	}
	b.active--
	b.mu.Unlock()
	b.sem.Release(1)
}

// Execute runs op while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

func (b *Bulkhead) track(n int) {
	b.mu.Lock()
	b.active += n
	b.peak = max(b.peak, b.active)
	b.mu.Unlock()
}

func (b *Bulkhead) reject() error {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
	return ErrBulkheadFull
}

// BulkheadStats is a point-in-time view of a Bulkhead.
type BulkheadStats struct {
	Capacity  int
	Active    int
	Peak      int
	Available int
	Rejected  int64
}

func (b *Bulkhead) Stats() BulkheadStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BulkheadStats{
		Capacity:  b.capacity,
		Active:    b.active,
		Peak:      b.peak,
		Available: b.capacity - b.active,
		Rejected:  b.rejected,
	}
}

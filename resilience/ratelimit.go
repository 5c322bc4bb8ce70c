package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/partsource/clock"
)

// SpacerConfig configures the per-provider call spacer.
type SpacerConfig struct {
	// MinInterval is the minimum time between two calls to the same provider.
	// Default: 0 (no spacing)
	MinInterval time.Duration

	// MaxWait bounds how far ahead a caller may reserve a slot. A caller whose
	// slot would be further away gets ErrRateLimitExceeded instead.
	// Default: 0 (wait as long as needed)
	MaxWait time.Duration

	// Clock is the time source.
	// Default: clock.Real
	Clock clock.Clock
}

// Spacer enforces a minimum spacing between calls to each provider.
//
// Each provider has a single "next free slot" timestamp. Acquire reserves
// max(now, last+interval) and sleeps until it, so concurrent callers are
// admitted in reservation order.
type Spacer struct {
	config SpacerConfig
	clock  clock.Clock

	mu        sync.Mutex
	intervals map[string]time.Duration
	last      map[string]time.Time
}

// NewSpacer creates a new spacer.
func NewSpacer(config SpacerConfig) *Spacer {
	if config.MinInterval < 0 {
		config.MinInterval = 0
	}
	return &Spacer{
		config:    config,
		clock:     clock.OrReal(config.Clock),
		intervals: make(map[string]time.Duration),
		last:      make(map[string]time.Time),
	}
}

// SetInterval overrides the spacing for one provider.
func (s *Spacer) SetInterval(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.intervals[name] = d
}

// Interval returns the spacing in effect for name.
func (s *Spacer) Interval(name string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intervalLocked(name)
}

func (s *Spacer) intervalLocked(name string) time.Duration {
	if d, ok := s.intervals[name]; ok {
		return d
	}
	return s.config.MinInterval
}

type reservation struct {
	slot    time.Time
	prev    time.Time
	hadPrev bool
	wait    time.Duration
}

// reserve books the next slot for name.
func (s *Spacer) reserve(name string) (reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	r := reservation{slot: now}
	r.prev, r.hadPrev = s.last[name]
	if r.hadPrev {
		if next := r.prev.Add(s.intervalLocked(name)); next.After(r.slot) {
			r.slot = next
		}
	}

	r.wait = r.slot.Sub(now)
	if s.config.MaxWait > 0 && r.wait > s.config.MaxWait {
		return reservation{}, ErrRateLimitExceeded
	}
	s.last[name] = r.slot
	return r, nil
}

// release gives back an unused slot if nobody reserved after it.
func (s *Spacer) release(name string, r reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.last[name].Equal(r.slot) {
		return
	}
	if r.hadPrev {
		s.last[name] = r.prev
	} else {
		delete(s.last, name)
	}
}

// Acquire blocks until the caller may call provider name.
func (s *Spacer) Acquire(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r, err := s.reserve(name)
	if err != nil {
		return err
	}
	if r.wait <= 0 {
		return nil
	}

	select {
	case <-s.clock.After(r.wait):
		return nil
	case <-ctx.Done():
		s.release(name, r)
		return ctx.Err()
	}
}

// Reset forgets every provider's last call.
func (s *Spacer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = make(map[string]time.Time)
}

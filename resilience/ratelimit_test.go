package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/partsource/clock"
)

func TestSpacer_FirstCallImmediate(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	s := NewSpacer(SpacerConfig{MinInterval: time.Second, Clock: fake})

	if err := s.Acquire(context.Background(), "catalog"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if fake.Waiters() != 0 {
		t.Error("first Acquire should not wait")
	}
}

func TestSpacer_WaitsRemainingDelta(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	s := NewSpacer(SpacerConfig{MinInterval: time.Second, Clock: fake})
	ctx := context.Background()

	if err := s.Acquire(ctx, "catalog"); err != nil {
		t.Fatal(err)
	}
	fake.Advance(300 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- s.Acquire(ctx, "catalog") }()

	waitForWaiters(t, fake, 1)
	fake.Advance(600 * time.Millisecond)

	select {
	case <-done:
		t.Fatal("Acquire returned before the interval elapsed")
	case <-time.After(20 * time.Millisecond):
	}

	fake.Advance(100 * time.Millisecond)
	if err := <-done; err != nil {
		t.Errorf("Acquire() error = %v", err)
	}
}

func TestSpacer_ProvidersIndependent(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	s := NewSpacer(SpacerConfig{MinInterval: time.Hour, Clock: fake})
	ctx := context.Background()

	if err := s.Acquire(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Acquire(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if fake.Waiters() != 0 {
		t.Error("distinct providers should not wait on each other")
	}
}

func TestSpacer_SetInterval(t *testing.T) {
	s := NewSpacer(SpacerConfig{MinInterval: time.Second})
	s.SetInterval("slow", 5*time.Second)
	s.SetInterval("neg", -time.Second)

	if got := s.Interval("slow"); got != 5*time.Second {
		t.Errorf("Interval(slow) = %v, want 5s", got)
	}
	if got := s.Interval("other"); got != time.Second {
		t.Errorf("Interval(other) = %v, want 1s", got)
	}
	if got := s.Interval("neg"); got != 0 {
		t.Errorf("Interval(neg) = %v, want 0", got)
	}
}

func TestSpacer_MaxWait(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	s := NewSpacer(SpacerConfig{MinInterval: time.Minute, MaxWait: time.Second, Clock: fake})
	ctx := context.Background()

	if err := s.Acquire(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Acquire(ctx, "a"); !errors.Is(err, ErrRateLimitExceeded) {
		t.Errorf("Acquire() error = %v, want ErrRateLimitExceeded", err)
	}
}

func TestSpacer_CancelReleasesSlot(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	s := NewSpacer(SpacerConfig{MinInterval: time.Second, Clock: fake})

	if err := s.Acquire(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Acquire(ctx, "a") }()

	waitForWaiters(t, fake, 1)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Acquire() error = %v, want context.Canceled", err)
	}

	// The abandoned slot is handed back, so the next caller only waits for
	// the first call's interval.
	fake.Advance(time.Second)
	if err := s.Acquire(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
}

func TestSpacer_Reset(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	s := NewSpacer(SpacerConfig{MinInterval: time.Hour, Clock: fake})

	_ = s.Acquire(context.Background(), "a")
	s.Reset()

	if err := s.Acquire(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if fake.Waiters() != 0 {
		t.Error("Acquire after Reset should not wait")
	}
}

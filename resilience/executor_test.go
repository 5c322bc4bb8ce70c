package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/partsource/clock"
)

func TestNewExecutor(t *testing.T) {
	e := NewExecutor()

	if e.spacer != nil || e.retry != nil || e.timeout != nil {
		t.Error("default executor should have no stages")
	}

	calls := 0
	err := e.Execute(context.Background(), "p", func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("Execute() = %v, calls = %d", err, calls)
	}
}

func TestExecutor_WithOptions(t *testing.T) {
	s := NewSpacer(SpacerConfig{})
	r := NewRetry(RetryConfig{})

	e := NewExecutor(WithSpacer(s), WithRetry(r), WithTimeout(time.Second))

	if e.Spacer() != s {
		t.Error("Spacer not set")
	}
	if e.retry != r {
		t.Error("Retry not set")
	}
	if e.timeout == nil || e.timeout.Config().Timeout != time.Second {
		t.Error("Timeout not set")
	}
}

func TestRun_RetriesTimeouts(t *testing.T) {
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond})),
		WithTimeout(20*time.Millisecond),
	)

	attempts := 0
	v, err := Run(context.Background(), e, "p", 0, func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if v != "ok" || attempts != 2 {
		t.Errorf("Run() = %q after %d attempts, want ok after 2", v, attempts)
	}
}

func TestRun_TimeoutExhaustion(t *testing.T) {
	e := NewExecutor(
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond})),
	)

	_, err := Run(context.Background(), e, "p", 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Run() error = %v, want ErrTimeout", err)
	}
	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("Run() error = %v, want ErrMaxRetriesExceeded", err)
	}
}

func TestRun_SpacesRetries(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	e := NewExecutor(
		WithSpacer(NewSpacer(SpacerConfig{MinInterval: time.Second, Clock: fake})),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, BaseDelay: 100 * time.Millisecond, Clock: fake})),
	)

	var at []time.Time
	done := make(chan error, 1)
	go func() {
		_, err := Run(context.Background(), e, "p", 0, func(ctx context.Context) (int, error) {
			at = append(at, fake.Now())
			return 0, errors.New("flaky")
		})
		done <- err
	}()

	// backoff wait
	waitForWaiters(t, fake, 1)
	fake.Advance(100 * time.Millisecond)
	// spacer wait for the remaining 900ms
	waitForWaiters(t, fake, 1)
	fake.Advance(900 * time.Millisecond)

	if err := <-done; !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Fatalf("Run() error = %v", err)
	}
	if len(at) != 2 {
		t.Fatalf("attempts = %d, want 2", len(at))
	}
	if gap := at[1].Sub(at[0]); gap < time.Second {
		t.Errorf("gap between attempts = %v, want >= 1s", gap)
	}
}

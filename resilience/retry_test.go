package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRetry(t *testing.T) {
	r := NewRetry(RetryConfig{})

	if r.config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", r.config.MaxAttempts)
	}
	if r.config.BaseDelay != 200*time.Millisecond {
		t.Errorf("BaseDelay = %v, want 200ms", r.config.BaseDelay)
	}
	if r.config.MaxDelay != 10*time.Second {
		t.Errorf("MaxDelay = %v, want 10s", r.config.MaxDelay)
	}
	if r.config.Jitter {
		t.Error("Jitter should default to false")
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	r := NewRetry(RetryConfig{MaxAttempts: 3})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_SuccessOnRetry(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	})

	attempts := 0
	v, err := Do(context.Background(), r, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if v != "ok" {
		t.Errorf("Do() = %q, want ok", v)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_ExhaustedCarriesLastCause(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	})

	attempts := 0
	causes := []error{errors.New("first"), errors.New("second"), errors.New("third")}

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		e := causes[attempts]
		attempts++
		return e
	})

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("error = %v, want ErrMaxRetriesExceeded", err)
	}
	if !errors.Is(err, causes[2]) {
		t.Errorf("error = %v, want last cause %v", err, causes[2])
	}
	if errors.Is(err, causes[0]) {
		t.Error("error should not carry the first cause")
	}

	var re *RetryError
	if !errors.As(err, &re) || re.Attempts != 3 {
		t.Errorf("errors.As RetryError = %+v", re)
	}
}

func TestRetry_PermanentFailsImmediately(t *testing.T) {
	permanent := errors.New("not found")
	r := NewRetry(RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		RetryIf: func(err error) bool {
			return !errors.Is(err, permanent)
		},
	})

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return permanent
	})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if err != permanent {
		t.Errorf("error = %v, want %v", err, permanent)
	}
}

func TestRetry_Delay(t *testing.T) {
	r := NewRetry(RetryConfig{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{60, time.Second},
	}

	for _, tt := range tests {
		if got := r.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetry_DelayJitterBounded(t *testing.T) {
	r := NewRetry(RetryConfig{
		BaseDelay: 100 * time.Millisecond,
		Jitter:    true,
	})

	for i := 0; i < 50; i++ {
		d := r.Delay(1)
		if d < 100*time.Millisecond || d >= 125*time.Millisecond {
			t.Fatalf("Delay(1) = %v, want in [100ms, 125ms)", d)
		}
	}
}

func TestRetry_OnRetry(t *testing.T) {
	var delays []time.Duration
	r := NewRetry(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})

	if len(delays) != 2 {
		t.Fatalf("OnRetry calls = %d, want 2", len(delays))
	}
	if delays[0] != time.Millisecond || delays[1] != 2*time.Millisecond {
		t.Errorf("delays = %v, want [1ms 2ms]", delays)
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := r.Execute(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("fail")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

package resilience

import (
	"errors"
	"testing"
)

func TestRetryError(t *testing.T) {
	cause := errors.New("upstream 503")
	err := error(&RetryError{Attempts: 3, Last: cause})

	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Error("errors.Is(err, ErrMaxRetriesExceeded) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false")
	}

	want := "resilience: max retries exceeded after 3 attempts: upstream 503"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

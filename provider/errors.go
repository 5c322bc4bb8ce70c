package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jonwraymond/partsource/resilience"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindNone        ErrorKind = ""
	KindTimeout     ErrorKind = "timeout"
	KindTransient   ErrorKind = "transient"
	KindPermanent   ErrorKind = "permanent"
	KindNotFound    ErrorKind = "not_found"
	KindUnavailable ErrorKind = "unavailable"
	KindUnknown     ErrorKind = "unknown"
)

// Retryable reports whether failures of this kind are worth another attempt.
// Unknown failures are retried; the attempt budget bounds the cost.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindTimeout, KindTransient, KindUnknown:
		return true
	default:
		return false
	}
}

// Sentinel errors, one per kind.
var (
	// ErrTimeout matches attempts that exceeded their time budget.
	ErrTimeout = errors.New("provider: timeout")

	// ErrTransient matches connection-level and 5xx-equivalent failures.
	ErrTransient = errors.New("provider: transient failure")

	// ErrPermanent matches malformed-request and parse failures.
	ErrPermanent = errors.New("provider: permanent failure")

	// ErrNotFound is returned when a backend does not know an identifier.
	ErrNotFound = errors.New("provider: not found")

	// ErrUnavailable is returned for providers that are unhealthy or
	// report IsAvailable() == false.
	ErrUnavailable = errors.New("provider: unavailable")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindTransient:
		return ErrTransient
	case KindPermanent:
		return ErrPermanent
	case KindNotFound:
		return ErrNotFound
	case KindUnavailable:
		return ErrUnavailable
	default:
		return nil
	}
}

// Error is a classified provider failure.
type Error struct {
	Provider string
	Op       string
	Kind     ErrorKind
	Err      error
}

// Errorf builds an *Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err as kind. A nil err yields nil.
func Wrap(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	msg := "provider"
	if e.Provider != "" {
		msg += " " + e.Provider
	}
	if e.Op != "" {
		msg += " " + e.Op
	}
	msg += ": " + string(e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Classify maps any error returned by an adapter or the attempt pipeline
// to an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var pe *Error
	if errors.As(err, &pe) && pe.Kind != KindNone {
		return pe.Kind
	}

	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, resilience.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrPermanent):
		return KindPermanent
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrTransient):
		return KindTransient
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return KindTimeout
		}
		return KindTransient
	}

	return KindUnknown
}

// IsRetryable reports whether err should be retried.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return Classify(err).Retryable()
}

package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonwraymond/partsource/provider"
)

// StatusError classifies a non-2xx HTTP response.
//
//   - 404: KindNotFound
//   - 408, 429 and 5xx: KindTransient
//   - any other status: KindPermanent
func StatusError(status int, body string) error {
	var kind provider.ErrorKind
	switch {
	case status == http.StatusNotFound:
		kind = provider.KindNotFound
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		kind = provider.KindTransient
	default:
		kind = provider.KindPermanent
	}
	if body != "" {
		return provider.Errorf(kind, "unexpected status %d: %s", status, body)
	}
	return provider.Errorf(kind, "unexpected status %d", status)
}

// TransportError classifies an error returned by http.Client.Do. Context
// errors pass through unchanged.
func TransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if provider.Classify(err) == provider.KindTimeout {
		return provider.Wrap(provider.KindTimeout, err)
	}
	return provider.Wrap(provider.KindTransient, fmt.Errorf("request failed: %w", err))
}

package auth

import (
	"context"
	"net/http"
	"strings"
)

// Chain consults authenticators in order. Only members that support the
// request are asked; the first success wins, otherwise the last failure is
// returned.
type Chain []Authenticator

// Name joins the member names with "+", e.g. "api_key+jwt".
func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, a := range c {
		names[i] = a.Name()
	}
	return strings.Join(names, "+")
}

func (c Chain) Supports(ctx context.Context, h http.Header) bool {
	for _, a := range c {
		if a.Supports(ctx, h) {
			return true
		}
	}
	return false
}

func (c Chain) Authenticate(ctx context.Context, h http.Header) (*AuthResult, error) {
	res := AuthFailure(ErrMissingCredentials, "")
	for _, a := range c {
		if !a.Supports(ctx, h) {
			continue
		}
		r, err := a.Authenticate(ctx, h)
		if err != nil {
			return nil, err
		}
		if r.Authenticated {
			return r, nil
		}
		res = r
	}
	return res, nil
}

var _ Authenticator = Chain(nil)

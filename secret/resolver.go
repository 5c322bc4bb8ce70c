package secret

import (
	"context"
	"fmt"
	"os"
	"regexp"
)

var refPattern = regexp.MustCompile(`secretref:([A-Za-z0-9_-]+):(\S+)`)

// Resolver expands configuration values. It holds no open resources.
type Resolver struct {
	schemes map[string]Provider
	lookup  func(string) (string, bool)
}

// NewResolver returns a Resolver dispatching secretrefs by scheme.
func NewResolver(schemes map[string]Provider) *Resolver {
	return &Resolver{schemes: schemes, lookup: os.LookupEnv}
}

// NewDefaultResolver serves the "env" and "file" schemes. File references
// are relative to dir, normally the directory of the config file.
func NewDefaultResolver(dir string) *Resolver {
	return NewResolver(map[string]Provider{
		"env":  Env(os.LookupEnv),
		"file": Dir(dir),
	})
}

// ResolveValue expands environment variables in value, then substitutes
// every secretref it contains. A reference may sit inside a longer value,
// as in "Bearer secretref:env:TOKEN".
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandStrict(value, r.lookup)
	if err != nil {
		return "", err
	}

	var firstErr error
	out := refPattern.ReplaceAllStringFunc(expanded, func(m string) string {
		if firstErr != nil {
			return m
		}
		sub := refPattern.FindStringSubmatch(m)
		v, err := r.resolve(ctx, sub[1], sub[2])
		if err != nil {
			firstErr = err
			return m
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func (r *Resolver) resolve(ctx context.Context, scheme, ref string) (string, error) {
	p, ok := r.schemes[scheme]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
	v, err := p.Lookup(ctx, ref)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%w: %s:%s", ErrEmpty, scheme, ref)
	}
	return v, nil
}

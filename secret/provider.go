package secret

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Provider looks references up in one backing store. Implementations must
// be safe for concurrent use and must never log the values they return.
type Provider interface {
	Lookup(ctx context.Context, ref string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, ref string) (string, error)

func (f ProviderFunc) Lookup(ctx context.Context, ref string) (string, error) { return f(ctx, ref) }

// Env treats a reference as an environment variable name.
func Env(lookup func(string) (string, bool)) Provider {
	return ProviderFunc(func(_ context.Context, ref string) (string, error) {
		v, ok := lookup(ref)
		if !ok {
			return "", fmt.Errorf("%w: env %s", ErrNotFound, ref)
		}
		return v, nil
	})
}

// Dir treats a reference as a file path. Relative paths are joined to the
// directory; surrounding whitespace is trimmed from the contents.
type Dir string

func (d Dir) Lookup(_ context.Context, ref string) (string, error) {
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(string(d), path)
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: file %s", ErrNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	return strings.TrimSpace(string(b)), nil
}

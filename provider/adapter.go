package provider

import "context"

// PartSource is a hardware-data backend.
//
// Contract:
//   - IsAvailable is a cheap local check (credentials present, endpoint set).
//     It must not perform network I/O.
//   - SearchParts returns at most limit results; an empty slice is a success.
//   - GetPartDetails returns an error matching ErrNotFound when the identifier
//     is unknown to the backend.
//   - Implementations must be safe for concurrent use.
type PartSource interface {
	IsAvailable(ctx context.Context) bool
	SearchParts(ctx context.Context, query, category string, limit int) ([]NormalizedResult, error)
	GetPartDetails(ctx context.Context, id string) (NormalizedResult, error)
}

// Generator is a generative-text backend.
//
// Contract:
//   - IsAvailable follows the PartSource rule.
//   - Generate returns a Comparison whose SourceProvider may be left empty;
//     the caller stamps it with the registered name.
type Generator interface {
	IsAvailable(ctx context.Context) bool
	Generate(ctx context.Context, req ComparisonRequest) (Comparison, error)
}

// SourceFuncs adapts plain functions to PartSource. Nil functions report the
// backend as unavailable or fail permanently.
type SourceFuncs struct {
	Available func(ctx context.Context) bool
	Search    func(ctx context.Context, query, category string, limit int) ([]NormalizedResult, error)
	Details   func(ctx context.Context, id string) (NormalizedResult, error)
}

// IsAvailable implements PartSource.
func (f SourceFuncs) IsAvailable(ctx context.Context) bool {
	if f.Available == nil {
		return true
	}
	return f.Available(ctx)
}

// SearchParts implements PartSource.
func (f SourceFuncs) SearchParts(ctx context.Context, query, category string, limit int) ([]NormalizedResult, error) {
	if f.Search == nil {
		return nil, Errorf(KindPermanent, "search not supported")
	}
	return f.Search(ctx, query, category, limit)
}

// GetPartDetails implements PartSource.
func (f SourceFuncs) GetPartDetails(ctx context.Context, id string) (NormalizedResult, error) {
	if f.Details == nil {
		return NormalizedResult{}, Errorf(KindPermanent, "details not supported")
	}
	return f.Details(ctx, id)
}

// GeneratorFunc adapts a function to an always-available Generator.
type GeneratorFunc func(ctx context.Context, req ComparisonRequest) (Comparison, error)

// IsAvailable implements Generator.
func (GeneratorFunc) IsAvailable(context.Context) bool { return true }

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req ComparisonRequest) (Comparison, error) {
	return f(ctx, req)
}

var (
	_ PartSource = SourceFuncs{}
	_ Generator  = GeneratorFunc(nil)
)

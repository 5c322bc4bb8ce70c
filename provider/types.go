package provider

import (
	"strconv"
	"strings"
	"time"
)

// NoneProvider is the SourceProvider marker for locally synthesized results.
const NoneProvider = "none"

// SpecValue is a single specification attribute. Numeric values keep their
// unit separately so adapters can normalize them.
type SpecValue struct {
	Text   string   `json:"text,omitempty" yaml:"text,omitempty"`
	Number *float64 `json:"number,omitempty" yaml:"number,omitempty"`
	Unit   string   `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Text returns a textual SpecValue.
func Text(s string) SpecValue { return SpecValue{Text: s} }

// Number returns a numeric SpecValue.
func Number(n float64, unit string) SpecValue { return SpecValue{Number: &n, Unit: unit} }

// String renders the value for display.
func (v SpecValue) String() string {
	if v.Number == nil {
		return v.Text
	}
	s := strconv.FormatFloat(*v.Number, 'f', -1, 64)
	if v.Unit != "" {
		s += " " + v.Unit
	}
	return s
}

// NormalizedResult is the provider-agnostic shape of a part.
type NormalizedResult struct {
	ID             string               `json:"id" yaml:"id"`
	Name           string               `json:"name" yaml:"name"`
	Brand          string               `json:"brand" yaml:"brand"`
	Category       string               `json:"category" yaml:"category"`
	Price          float64              `json:"price" yaml:"price"`
	Currency       string               `json:"currency,omitempty" yaml:"currency,omitempty"`
	Specifications map[string]SpecValue `json:"specifications,omitempty" yaml:"specifications,omitempty"`
	SourceProvider string               `json:"sourceProvider" yaml:"source_provider,omitempty"`
	URL            string               `json:"url,omitempty" yaml:"url,omitempty"`
	Image          string               `json:"image,omitempty" yaml:"image,omitempty"`
}

// DedupeKey identifies the same physical part across providers.
func (r NormalizedResult) DedupeKey() string {
	return strings.ToLower(strings.TrimSpace(r.Name)) + "|" + strings.ToLower(strings.TrimSpace(r.Brand))
}

// ComparisonRequest asks a Generator to compare two parts.
type ComparisonRequest struct {
	A NormalizedResult `json:"a"`
	B NormalizedResult `json:"b"`

	// Focus optionally narrows the comparison, for example "gaming".
	Focus string `json:"focus,omitempty"`
}

// Comparison is the generated explanation for a ComparisonRequest.
type Comparison struct {
	Summary        string   `json:"summary"`
	Recommendation string   `json:"recommendation,omitempty"`
	Highlights     []string `json:"highlights,omitempty"`
	SourceProvider string   `json:"sourceProvider"`
	Degraded       bool     `json:"degraded,omitempty"`
}

// AttemptOutcome describes one completed provider attempt.
type AttemptOutcome struct {
	Provider string
	Success  bool
	Duration time.Duration
	Kind     ErrorKind
}

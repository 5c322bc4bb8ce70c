package fallback

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jonwraymond/partsource/provider"
)

// Dedupe removes results whose DedupeKey was already seen, keeping the first
// occurrence. It returns the kept results and the number removed.
func Dedupe(results []provider.NormalizedResult) ([]provider.NormalizedResult, int) {
	seen := make(map[string]struct{}, len(results))
	out := make([]provider.NormalizedResult, 0, len(results))
	for _, r := range results {
		key := r.DedupeKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, len(results) - len(out)
}

// DegradedPart is the placeholder returned by Resolve when no provider
// could describe identifier.
func DegradedPart(identifier string) provider.NormalizedResult {
	return provider.NormalizedResult{
		ID:             identifier,
		Name:           identifier,
		SourceProvider: provider.NoneProvider,
	}
}

// DegradedComparison builds a comparison from the two parts alone. The
// output depends only on req.
func DegradedComparison(req provider.ComparisonRequest) provider.Comparison {
	a, b := req.A, req.B

	summary := fmt.Sprintf("%s compared with %s.", label(a), label(b))
	if req.Focus != "" {
		summary = fmt.Sprintf("%s compared with %s for %s.", label(a), label(b), req.Focus)
	}

	var highlights []string
	if line := priceLine(a, b); line != "" {
		highlights = append(highlights, line)
	}
	highlights = append(highlights, specLines(a, b)...)

	return provider.Comparison{
		Summary:        summary,
		Recommendation: recommendation(a, b),
		Highlights:     highlights,
		SourceProvider: provider.NoneProvider,
		Degraded:       true,
	}
}

func label(r provider.NormalizedResult) string {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = r.ID
	}
	brand := strings.TrimSpace(r.Brand)
	if brand == "" || strings.HasPrefix(strings.ToLower(name), strings.ToLower(brand)) {
		return name
	}
	return brand + " " + name
}

func money(v float64, currency string) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if currency != "" {
		s += " " + currency
	}
	return s
}

func priceLine(a, b provider.NormalizedResult) string {
	if a.Price <= 0 || b.Price <= 0 {
		return ""
	}
	if a.Currency != b.Currency {
		return fmt.Sprintf("Price: %s vs %s", money(a.Price, a.Currency), money(b.Price, b.Currency))
	}
	switch {
	case a.Price < b.Price:
		return fmt.Sprintf("Price: %s is cheaper by %s", label(a), money(b.Price-a.Price, a.Currency))
	case b.Price < a.Price:
		return fmt.Sprintf("Price: %s is cheaper by %s", label(b), money(a.Price-b.Price, b.Currency))
	default:
		return "Price: both cost " + money(a.Price, a.Currency)
	}
}

// specLines lists the specifications both parts declare, in key order.
func specLines(a, b provider.NormalizedResult) []string {
	keys := make([]string, 0, len(a.Specifications))
	for k := range a.Specifications {
		if _, ok := b.Specifications[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		va, vb := a.Specifications[k].String(), b.Specifications[k].String()
		if va == vb {
			lines = append(lines, fmt.Sprintf("%s: both %s", k, va))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s vs %s", k, va, vb))
	}
	return lines
}

func recommendation(a, b provider.NormalizedResult) string {
	if a.Price > 0 && b.Price > 0 && a.Currency == b.Currency && a.Price != b.Price {
		cheaper := a
		if b.Price < a.Price {
			cheaper = b
		}
		return fmt.Sprintf("Automated analysis is unavailable. On price alone, %s is the better value.", label(cheaper))
	}
	return "Automated analysis is unavailable. Review the specifications above."
}

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonwraymond/partsource/provider"
)

// Keyer derives the identifier of a call whose natural key is more than one
// value, such as a search. Implementations must be deterministic and safe
// for concurrent use.
type Keyer interface {
	Key(op string, input any) (string, error)
}

// HashKeyer keys a call as "<op>:" followed by 16 hex characters of SHA-256
// over the JSON encoding of input. encoding/json writes map keys sorted, so
// maps hash alike whatever order they were built in.
type HashKeyer struct{}

func (HashKeyer) Key(op string, input any) (string, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("cache: %s key: %w", op, err)
	}
	sum := sha256.Sum256(b)
	return op + ":" + hex.EncodeToString(sum[:8]), nil
}

// SearchInput is the key material of a search. Query and category are
// case-folded and trimmed so trivially different spellings share an entry.
func SearchInput(query, category string, limit int) map[string]any {
	return map[string]any{
		"query":    fold(query),
		"category": fold(category),
		"limit":    limit,
	}
}

// CompareInput is the key material of a comparison. A part is identified by
// its source and id when it has one, by name and brand otherwise.
func CompareInput(req provider.ComparisonRequest) map[string]any {
	return map[string]any{
		"a":     partKey(req.A),
		"b":     partKey(req.B),
		"focus": fold(req.Focus),
	}
}

func partKey(r provider.NormalizedResult) string {
	if r.ID != "" {
		return r.SourceProvider + "/" + r.ID
	}
	return r.DedupeKey()
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for an identifier or provider
// name.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
	ErrClosed     = errors.New("cache: store is closed")
)

// Stats counts cached entries.
type Stats struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Expired int `json:"expired"`
}

// Store is a TTL-bounded memo of provider responses keyed by
// (identifier, provider).
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Get never errors; a miss, an expired entry and a backend failure all
//     return (nil, false).
//   - Put is an upsert. A non-positive ttl stores nothing.
//   - An empty provider in SweepExpired or Stats means every provider.
type Store interface {
	Get(ctx context.Context, identifier, provider string) ([]byte, bool)
	Put(ctx context.Context, identifier, provider string, payload []byte, ttl time.Duration) error
	SweepExpired(ctx context.Context, provider string) (int, error)
	Stats(ctx context.Context, provider string) (Stats, error)
	Close() error
}

// ValidateKey checks an identifier or provider name.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r\x00") {
		return ErrInvalidKey
	}
	return nil
}

func validatePair(identifier, provider string) error {
	if err := ValidateKey(identifier); err != nil {
		return err
	}
	return ValidateKey(provider)
}

// Hours converts a TTL expressed in hours.
func Hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

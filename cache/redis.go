package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	// Addr is the host:port of the server.
	// Default: localhost:6379
	Addr string

	Password string
	DB       int

	// Prefix namespaces every key.
	// Default: partsource
	Prefix string
}

// RedisStore is a Store shared between processes. Entries use native Redis
// expiry, so expired entries are reclaimed by the server: SweepExpired
// removes nothing and Stats never reports expired entries.
type RedisStore struct {
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedisStore dials a new client.
func NewRedisStore(config RedisConfig) *RedisStore {
	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	s := NewRedisStoreWithClient(client, config.Prefix)
	s.owned = true
	return s
}

// NewRedisStoreWithClient uses an existing client. Close leaves it open.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "partsource"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Keys are laid out as "<prefix>:<len(provider)>:<provider>:<identifier>".
// The length keeps provider names containing ':' from aliasing another
// provider's entries.
func (s *RedisStore) key(identifier, provider string) string {
	return s.namespace(provider) + identifier
}

func (s *RedisStore) namespace(provider string) string {
	return s.prefix + ":" + strconv.Itoa(len(provider)) + ":" + provider + ":"
}

func (s *RedisStore) pattern(provider string) string {
	if provider == "" {
		return escapeGlob(s.prefix) + ":*"
	}
	return escapeGlob(s.namespace(provider)) + "*"
}

// Get returns the payload for (identifier, provider).
func (s *RedisStore) Get(ctx context.Context, identifier, provider string) ([]byte, bool) {
	b, err := s.client.Get(ctx, s.key(identifier, provider)).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

// Put upserts payload with a native TTL.
func (s *RedisStore) Put(ctx context.Context, identifier, provider string, payload []byte, ttl time.Duration) error {
	if err := validatePair(identifier, provider); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(identifier, provider), payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// SweepExpired returns 0; the server expires keys itself.
func (s *RedisStore) SweepExpired(ctx context.Context, _ string) (int, error) {
	return 0, ctx.Err()
}

// Stats counts live keys, optionally for one provider.
func (s *RedisStore) Stats(ctx context.Context, provider string) (Stats, error) {
	var st Stats
	iter := s.client.Scan(ctx, 0, s.pattern(provider), 100).Iterator()
	for iter.Next(ctx) {
		st.Total++
	}
	if err := iter.Err(); err != nil {
		return Stats{}, fmt.Errorf("cache: redis scan: %w", err)
	}
	st.Valid = st.Total
	return st, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client if the store created it.
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

var _ Store = (*RedisStore)(nil)

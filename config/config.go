package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/partsource/observe"
	"github.com/jonwraymond/partsource/secret"
)

// Provider types.
const (
	TypeCatalog = "catalog"
	TypeScrape  = "scrape"
	TypeFixture = "fixture"
	TypeGemini  = "gemini"
)

// Cache backends.
const (
	CacheMemory  = "memory"
	CacheLevelDB = "leveldb"
	CacheRedis   = "redis"
	CacheNone    = "none"
)

// Config is the root configuration.
type Config struct {
	Observe    observe.Config `yaml:"observe"`
	Server     ServerConfig   `yaml:"server"`
	Auth       AuthConfig     `yaml:"auth"`
	Sources    RegistryConfig `yaml:"sources"`
	Generators RegistryConfig `yaml:"generators"`
	Retry      RetryConfig    `yaml:"retry"`
	Spacing    SpacingConfig  `yaml:"spacing"`
	Bulkhead   BulkheadConfig `yaml:"bulkhead"`
	Cache      CacheConfig    `yaml:"cache"`
	Health     HealthConfig   `yaml:"health"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: :8080
	Addr string `yaml:"addr"`

	// Default: 10s
	ReadTimeout Duration `yaml:"read_timeout"`

	// Default: 60s
	WriteTimeout Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// AuthConfig configures authentication of the HTTP API.
type AuthConfig struct {
	Enabled bool           `yaml:"enabled"`
	APIKeys []APIKeyConfig `yaml:"api_keys"`
	JWT     JWTConfig      `yaml:"jwt"`

	// APIKeyHeader carries API keys.
	// Default: X-API-Key
	APIKeyHeader string `yaml:"api_key_header"`

	// AnonymousRoles are granted to unauthenticated requests. Empty means
	// unauthenticated requests are rejected.
	AnonymousRoles []string `yaml:"anonymous_roles"`

	// OperatorRoles may reset providers and sweep the cache.
	// Default: [operator]
	OperatorRoles []string `yaml:"operator_roles"`
}

// APIKeyConfig is one accepted API key.
type APIKeyConfig struct {
	ID        string   `yaml:"id"`
	Key       string   `yaml:"key"`
	Principal string   `yaml:"principal"`
	Roles     []string `yaml:"roles"`
}

// JWTConfig configures HMAC-signed bearer tokens. Disabled while Secret is
// empty.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// RegistryConfig configures one provider registry.
type RegistryConfig struct {
	// Threshold is the error count a provider may reach and stay healthy.
	// Default: 5 for sources, 3 for generators
	Threshold uint `yaml:"threshold"`

	// Timeout bounds one attempt.
	// Default: 8s for sources, 30s for generators
	Timeout Duration `yaml:"timeout"`

	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig configures one adapter. Which fields apply depends on Type.
type ProviderConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Priority int    `yaml:"priority"`

	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled"`

	// MinInterval overrides spacing.min_interval for this provider.
	MinInterval Duration `yaml:"min_interval"`

	// Cache defaults to true when a cache backend is configured.
	Cache *bool `yaml:"cache"`

	// CacheTTL overrides cache.default_ttl for this provider.
	CacheTTL Duration `yaml:"cache_ttl"`

	// catalog
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	APIKeyHeader string `yaml:"api_key_header"`
	RequireKey   bool   `yaml:"require_key"`
	Currency     string `yaml:"currency"`

	// scrape
	SearchURL string            `yaml:"search_url"`
	DetailURL string            `yaml:"detail_url"`
	Selectors map[string]string `yaml:"selectors"`

	// fixture
	Path string `yaml:"path"`

	// gemini
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// IsEnabled reports whether the provider should be registered.
func (p ProviderConfig) IsEnabled() bool { return p.Enabled == nil || *p.Enabled }

// UsesCache reports whether responses of this provider are cached.
func (p ProviderConfig) UsesCache() bool { return p.Cache == nil || *p.Cache }

// RetryConfig configures retries of a single provider attempt.
type RetryConfig struct {
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// Default: 200ms
	BaseDelay Duration `yaml:"base_delay"`

	// Default: 10s
	MaxDelay Duration `yaml:"max_delay"`

	Jitter bool `yaml:"jitter"`
}

// SpacingConfig configures the minimum interval between two calls to the
// same provider.
type SpacingConfig struct {
	// Default: 0 (no spacing)
	MinInterval Duration `yaml:"min_interval"`

	// MaxWait rejects a call whose slot is further away. 0 waits forever.
	MaxWait Duration `yaml:"max_wait"`
}

// BulkheadConfig caps concurrent operations. Disabled when MaxConcurrent
// is 0.
type BulkheadConfig struct {
	MaxConcurrent int      `yaml:"max_concurrent"`
	MaxWait       Duration `yaml:"max_wait"`
}

// CacheConfig configures response caching.
type CacheConfig struct {
	// Backend is memory, leveldb, redis or none.
	// Default: memory
	Backend string `yaml:"backend"`

	// Path is the leveldb directory.
	Path string `yaml:"path"`

	Redis RedisConfig `yaml:"redis"`

	// Default: 24h
	DefaultTTL Duration `yaml:"default_ttl"`

	// Default: 168h
	MaxTTL Duration `yaml:"max_ttl"`

	// SweepInterval schedules removal of expired entries. 0 disables it.
	// Default: 1h
	SweepInterval Duration `yaml:"sweep_interval"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Default: partsource:cache:
	Prefix string `yaml:"prefix"`
}

// HealthConfig configures provider rehabilitation.
type HealthConfig struct {
	// RehabilitateInterval resets unhealthy providers periodically.
	// 0 disables it.
	RehabilitateInterval Duration `yaml:"rehabilitate_interval"`
}

// Parse decodes YAML and applies defaults. Secrets are not resolved.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	cfg := &Config{}
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Load reads path, applies defaults, resolves secrets and validates. File
// secret references are relative to the directory holding path.
func Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := cfg.Resolve(ctx, secret.NewDefaultResolver(filepath.Dir(path))); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults replaces zero values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Observe.ServiceName == "" {
		c.Observe.ServiceName = "partsource"
	}

	defDur(&c.Server.ReadTimeout, 10*time.Second)
	defDur(&c.Server.WriteTimeout, 60*time.Second)
	defDur(&c.Server.ShutdownTimeout, 15*time.Second)
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}

	if len(c.Auth.OperatorRoles) == 0 {
		c.Auth.OperatorRoles = []string{"operator"}
	}

	if c.Sources.Threshold == 0 {
		c.Sources.Threshold = 5
	}
	defDur(&c.Sources.Timeout, 8*time.Second)
	if c.Generators.Threshold == 0 {
		c.Generators.Threshold = 3
	}
	defDur(&c.Generators.Timeout, 30*time.Second)

	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	defDur(&c.Retry.BaseDelay, 200*time.Millisecond)
	defDur(&c.Retry.MaxDelay, 10*time.Second)

	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	defDur(&c.Cache.DefaultTTL, 24*time.Hour)
	defDur(&c.Cache.MaxTTL, 7*24*time.Hour)
	defDur(&c.Cache.SweepInterval, time.Hour)
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "partsource:cache:"
	}
}

func defDur(d *Duration, v time.Duration) {
	if *d <= 0 {
		*d = Duration(v)
	}
}

// Resolve expands environment variables and secret references in every
// credential and endpoint field.
func (c *Config) Resolve(ctx context.Context, r *secret.Resolver) error {
	type field struct {
		path string
		v    *string
	}
	fields := []field{
		{"observe.tracing.endpoint", &c.Observe.Tracing.Endpoint},
		{"observe.metrics.endpoint", &c.Observe.Metrics.Endpoint},
		{"auth.jwt.secret", &c.Auth.JWT.Secret},
		{"cache.path", &c.Cache.Path},
		{"cache.redis.addr", &c.Cache.Redis.Addr},
		{"cache.redis.password", &c.Cache.Redis.Password},
	}
	for i := range c.Auth.APIKeys {
		fields = append(fields, field{fmt.Sprintf("auth.api_keys[%d].key", i), &c.Auth.APIKeys[i].Key})
	}
	for _, reg := range []struct {
		path string
		cfg  *RegistryConfig
	}{{"sources", &c.Sources}, {"generators", &c.Generators}} {
		for i := range reg.cfg.Providers {
			p := &reg.cfg.Providers[i]
			prefix := fmt.Sprintf("%s.providers[%d].", reg.path, i)
			fields = append(fields,
				field{prefix + "base_url", &p.BaseURL},
				field{prefix + "api_key", &p.APIKey},
				field{prefix + "search_url", &p.SearchURL},
				field{prefix + "detail_url", &p.DetailURL},
				field{prefix + "path", &p.Path},
			)
		}
	}

	for _, f := range fields {
		if *f.v == "" {
			continue
		}
		resolved, err := r.ResolveValue(ctx, *f.v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", f.path, err)
		}
		*f.v = resolved
	}
	return nil
}

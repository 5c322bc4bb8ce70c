package cache

import "time"

// Policy bounds how long provider responses live in the store.
type Policy struct {
	// DefaultTTL applies to providers without a TTL of their own. Zero
	// turns caching off.
	DefaultTTL time.Duration

	// MaxTTL caps every TTL, including per-provider ones. Zero leaves TTLs
	// uncapped.
	MaxTTL time.Duration
}

// DefaultPolicy keeps parts for a day and never longer than a week.
func DefaultPolicy() Policy {
	return Policy{DefaultTTL: 24 * time.Hour, MaxTTL: 7 * 24 * time.Hour}
}

// Enabled reports whether anything is cached under p.
func (p Policy) Enabled() bool { return p.DefaultTTL > 0 }

// TTL returns the lifetime of an entry written for a provider configured
// with providerTTL, which is zero when the provider sets none.
func (p Policy) TTL(providerTTL time.Duration) time.Duration {
	ttl := p.DefaultTTL
	if providerTTL > 0 {
		ttl = providerTTL
	}
	if p.MaxTTL > 0 {
		ttl = min(ttl, p.MaxTTL)
	}
	return ttl
}

package config

import (
	"fmt"
	"net/url"
)

var sourceTypes = map[string]bool{TypeCatalog: true, TypeScrape: true, TypeFixture: true}

var generatorTypes = map[string]bool{TypeGemini: true}

var cacheBackends = map[string]bool{CacheMemory: true, CacheLevelDB: true, CacheRedis: true, CacheNone: true}

// Validate reports the first problem found, prefixed with its YAML path.
func (c *Config) Validate() error {
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	if err := validateRegistry("sources", c.Sources, sourceTypes); err != nil {
		return err
	}
	if err := validateRegistry("generators", c.Generators, generatorTypes); err != nil {
		return err
	}

	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay: %w: %s is below base_delay %s", ErrInvalidValue, c.Retry.MaxDelay, c.Retry.BaseDelay)
	}
	if c.Bulkhead.MaxConcurrent < 0 {
		return fmt.Errorf("bulkhead.max_concurrent: %w: %d", ErrInvalidValue, c.Bulkhead.MaxConcurrent)
	}

	if !cacheBackends[c.Cache.Backend] {
		return fmt.Errorf("cache.backend: %w: %q", ErrUnknownType, c.Cache.Backend)
	}
	switch c.Cache.Backend {
	case CacheLevelDB:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path: %w", ErrMissingField)
		}
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr: %w", ErrMissingField)
		}
	}
	if c.Cache.MaxTTL < c.Cache.DefaultTTL {
		return fmt.Errorf("cache.max_ttl: %w: %s is below default_ttl %s", ErrInvalidValue, c.Cache.MaxTTL, c.Cache.DefaultTTL)
	}

	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 && c.Auth.JWT.Secret == "" && len(c.Auth.AnonymousRoles) == 0 {
		return fmt.Errorf("auth: %w: enabled without api_keys, jwt.secret or anonymous_roles", ErrMissingField)
	}
	for i, k := range c.Auth.APIKeys {
		if k.Key == "" {
			return fmt.Errorf("auth.api_keys[%d].key: %w", i, ErrMissingField)
		}
		if k.Principal == "" {
			return fmt.Errorf("auth.api_keys[%d].principal: %w", i, ErrMissingField)
		}
	}
	return nil
}

func validateRegistry(path string, r RegistryConfig, types map[string]bool) error {
	seen := make(map[string]bool, len(r.Providers))
	for i, p := range r.Providers {
		at := fmt.Sprintf("%s.providers[%d]", path, i)
		if p.Name == "" {
			return fmt.Errorf("%s.name: %w", at, ErrMissingField)
		}
		if seen[p.Name] {
			return fmt.Errorf("%s.name: %w: %q", at, ErrDuplicateProvider, p.Name)
		}
		seen[p.Name] = true

		if !types[p.Type] {
			return fmt.Errorf("%s.type: %w: %q", at, ErrUnknownType, p.Type)
		}
		if p.MinInterval < 0 || p.CacheTTL < 0 {
			return fmt.Errorf("%s: %w: negative duration", at, ErrInvalidValue)
		}

		switch p.Type {
		case TypeCatalog:
			if err := checkURL(at+".base_url", p.BaseURL); err != nil {
				return err
			}
		case TypeScrape:
			if err := checkURL(at+".search_url", p.SearchURL); err != nil {
				return err
			}
		case TypeFixture:
			if p.Path == "" {
				return fmt.Errorf("%s.path: %w", at, ErrMissingField)
			}
		case TypeGemini:
			if p.Temperature < 0 || p.Temperature > 2 {
				return fmt.Errorf("%s.temperature: %w: %v", at, ErrInvalidValue, p.Temperature)
			}
		}
	}
	return nil
}

func checkURL(path, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s: %w", path, ErrMissingField)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s: %w: %q", path, ErrInvalidValue, raw)
	}
	return nil
}

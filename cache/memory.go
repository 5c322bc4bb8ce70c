package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/partsource/clock"
)

type memKey struct {
	provider   string
	identifier string
}

type memEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Expired entries are dropped lazily
// on Get and in bulk by SweepExpired.
type MemoryStore struct {
	clock clock.Clock

	mu      sync.RWMutex
	entries map[memKey]memEntry
}

// NewMemoryStore creates an empty store. A nil clock uses the system clock.
func NewMemoryStore(c clock.Clock) *MemoryStore {
	return &MemoryStore{
		clock:   clock.OrReal(c),
		entries: make(map[memKey]memEntry),
	}
}

// Get returns the payload for (identifier, provider) unless missing or expired.
func (s *MemoryStore) Get(_ context.Context, identifier, provider string) ([]byte, bool) {
	k := memKey{provider: provider, identifier: identifier}

	s.mu.RLock()
	e, ok := s.entries[k]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if s.clock.Now().After(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[k]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, k)
		}
		s.mu.Unlock()
		return nil, false
	}

	out := make([]byte, len(e.payload))
	copy(out, e.payload)
	return out, true
}

// Put upserts payload with expiry now+ttl.
func (s *MemoryStore) Put(_ context.Context, identifier, provider string, payload []byte, ttl time.Duration) error {
	if err := validatePair(identifier, provider); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)

	s.mu.Lock()
	s.entries[memKey{provider: provider, identifier: identifier}] = memEntry{
		payload:   stored,
		expiresAt: s.clock.Now().Add(ttl),
	}
	s.mu.Unlock()
	return nil
}

// SweepExpired deletes expired entries and returns how many were removed.
func (s *MemoryStore) SweepExpired(_ context.Context, provider string) (int, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if provider != "" && k.provider != provider {
			continue
		}
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Stats counts entries, optionally for one provider.
func (s *MemoryStore) Stats(_ context.Context, provider string) (Stats, error) {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for k, e := range s.entries {
		if provider != "" && k.provider != provider {
			continue
		}
		st.Total++
		if now.After(e.expiresAt) {
			st.Expired++
		} else {
			st.Valid++
		}
	}
	return st, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)

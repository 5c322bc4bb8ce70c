package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/jonwraymond/partsource/clock"
)

// Record layout: key "e:<provider>\x00<identifier>", value is the expiry as
// big-endian unix nanoseconds followed by the payload.
const (
	entryPrefix = "e:"
	keySep      = 0x00
	expiryLen   = 8
)

// LevelDBStore is a durable Store backed by an on-disk LevelDB database.
type LevelDBStore struct {
	clock clock.Clock

	mu     sync.RWMutex
	db     *leveldb.DB
	closed bool
}

// OpenLevelDB opens or creates a store at path.
func OpenLevelDB(path string, c clock.Clock) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: open leveldb %s: %w", path, err)
	}
	return &LevelDBStore{clock: clock.OrReal(c), db: db}, nil
}

func entryKey(identifier, provider string) []byte {
	k := make([]byte, 0, len(entryPrefix)+len(provider)+1+len(identifier))
	k = append(k, entryPrefix...)
	k = append(k, provider...)
	k = append(k, keySep)
	return append(k, identifier...)
}

func providerPrefix(provider string) []byte {
	if provider == "" {
		return []byte(entryPrefix)
	}
	p := append([]byte(entryPrefix), provider...)
	return append(p, keySep)
}

func encodeRecord(expiresAt time.Time, payload []byte) []byte {
	b := make([]byte, expiryLen+len(payload))
	binary.BigEndian.PutUint64(b, uint64(expiresAt.UnixNano()))
	copy(b[expiryLen:], payload)
	return b
}

func decodeExpiry(b []byte) (time.Time, bool) {
	if len(b) < expiryLen {
		return time.Time{}, false
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(b[:expiryLen]))), true
}

// Get returns the payload for (identifier, provider) unless missing or expired.
func (s *LevelDBStore) Get(_ context.Context, identifier, provider string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false
	}

	b, err := s.db.Get(entryKey(identifier, provider), nil)
	if err != nil {
		return nil, false
	}
	exp, ok := decodeExpiry(b)
	if !ok || s.clock.Now().After(exp) {
		return nil, false
	}
	return bytes.Clone(b[expiryLen:]), true
}

// Put upserts payload with expiry now+ttl.
func (s *LevelDBStore) Put(_ context.Context, identifier, provider string, payload []byte, ttl time.Duration) error {
	if err := validatePair(identifier, provider); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	rec := encodeRecord(s.clock.Now().Add(ttl), payload)
	if err := s.db.Put(entryKey(identifier, provider), rec, nil); err != nil {
		return fmt.Errorf("cache: leveldb put: %w", err)
	}
	return nil
}

// SweepExpired deletes expired entries in one batch.
func (s *LevelDBStore) SweepExpired(_ context.Context, provider string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	now := s.clock.Now()
	batch := new(leveldb.Batch)

	it := s.db.NewIterator(util.BytesPrefix(providerPrefix(provider)), nil)
	for it.Next() {
		exp, ok := decodeExpiry(it.Value())
		if !ok || now.After(exp) {
			batch.Delete(bytes.Clone(it.Key()))
		}
	}
	it.Release()
	if err := it.Error(); err != nil {
		return 0, fmt.Errorf("cache: leveldb scan: %w", err)
	}

	if batch.Len() == 0 {
		return 0, nil
	}
	if err := s.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("cache: leveldb sweep: %w", err)
	}
	return batch.Len(), nil
}

// Stats counts entries, optionally for one provider.
func (s *LevelDBStore) Stats(_ context.Context, provider string) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Stats{}, ErrClosed
	}

	now := s.clock.Now()
	var st Stats

	it := s.db.NewIterator(util.BytesPrefix(providerPrefix(provider)), nil)
	defer it.Release()
	for it.Next() {
		st.Total++
		if exp, ok := decodeExpiry(it.Value()); ok && !now.After(exp) {
			st.Valid++
		} else {
			st.Expired++
		}
	}
	if err := it.Error(); err != nil {
		return Stats{}, fmt.Errorf("cache: leveldb scan: %w", err)
	}
	return st, nil
}

// Close closes the database. Further calls fail with ErrClosed.
func (s *LevelDBStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil && !errors.Is(err, leveldb.ErrClosed) {
		return err
	}
	return nil
}

var _ Store = (*LevelDBStore)(nil)

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/partsource/clock"
)

// storeHarness builds a store bound to a fake clock, and advances that time
// in a way the backend observes.
type storeHarness struct {
	store   Store
	advance func(d time.Duration)
}

// runStoreContract exercises behaviour every Store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) storeHarness) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		h := newStore(t)
		payload := []byte(`{"name":"RTX 4070"}`)

		if err := h.store.Put(ctx, "sku-1", "catalog", payload, time.Hour); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		got, ok := h.store.Get(ctx, "sku-1", "catalog")
		if !ok || string(got) != string(payload) {
			t.Errorf("Get() = %q, %v; want %q, true", got, ok, payload)
		}
	})

	t.Run("expires after ttl", func(t *testing.T) {
		h := newStore(t)
		_ = h.store.Put(ctx, "sku-1", "catalog", []byte("x"), time.Hour)

		h.advance(time.Hour + time.Second)
		if _, ok := h.store.Get(ctx, "sku-1", "catalog"); ok {
			t.Error("Get() after TTL should miss")
		}
	})

	t.Run("provider scoped", func(t *testing.T) {
		h := newStore(t)
		_ = h.store.Put(ctx, "sku-1", "catalog", []byte("a"), time.Hour)

		if _, ok := h.store.Get(ctx, "sku-1", "scraper"); ok {
			t.Error("entries must be keyed by provider too")
		}
	})

	t.Run("provider names containing separators", func(t *testing.T) {
		h := newStore(t)
		_ = h.store.Put(ctx, "part:1", "shop", []byte("a"), time.Hour)
		_ = h.store.Put(ctx, "1", "shop:part", []byte("b"), time.Hour)

		if got, _ := h.store.Get(ctx, "part:1", "shop"); string(got) != "a" {
			t.Errorf("Get(part:1, shop) = %q, want a", got)
		}
		if got, _ := h.store.Get(ctx, "1", "shop:part"); string(got) != "b" {
			t.Errorf("Get(1, shop:part) = %q, want b", got)
		}
		st, err := h.store.Stats(ctx, "shop")
		if err != nil {
			t.Fatal(err)
		}
		if st.Total != 1 {
			t.Errorf("Stats(shop).Total = %d, want 1", st.Total)
		}
	})

	t.Run("upsert", func(t *testing.T) {
		h := newStore(t)
		_ = h.store.Put(ctx, "sku-1", "catalog", []byte("old"), time.Hour)
		_ = h.store.Put(ctx, "sku-1", "catalog", []byte("new"), time.Hour)

		got, _ := h.store.Get(ctx, "sku-1", "catalog")
		if string(got) != "new" {
			t.Errorf("Get() = %q, want new", got)
		}
		st, err := h.store.Stats(ctx, "catalog")
		if err != nil {
			t.Fatal(err)
		}
		if st.Total != 1 {
			t.Errorf("Total = %d, want 1 after upsert", st.Total)
		}
	})

	t.Run("zero ttl stores nothing", func(t *testing.T) {
		h := newStore(t)
		if err := h.store.Put(ctx, "sku-1", "catalog", []byte("x"), 0); err != nil {
			t.Fatal(err)
		}
		if _, ok := h.store.Get(ctx, "sku-1", "catalog"); ok {
			t.Error("Put with ttl 0 should not store")
		}
	})

	t.Run("invalid keys", func(t *testing.T) {
		h := newStore(t)
		if err := h.store.Put(ctx, "", "catalog", []byte("x"), time.Hour); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("empty identifier error = %v", err)
		}
		if err := h.store.Put(ctx, "id", " ", []byte("x"), time.Hour); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("blank provider error = %v", err)
		}
	})
}

func newMemoryHarness(t *testing.T) storeHarness {
	fake := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return storeHarness{store: NewMemoryStore(fake), advance: fake.Advance}
}

func newLevelDBHarness(t *testing.T) storeHarness {
	fake := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s, err := OpenLevelDB(t.TempDir(), fake)
	if err != nil {
		t.Fatalf("OpenLevelDB() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return storeHarness{store: s, advance: fake.Advance}
}

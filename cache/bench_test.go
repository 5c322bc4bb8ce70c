package cache

import (
	"context"
	"testing"
	"time"
)

func BenchmarkMemoryStore_Get(b *testing.B) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	_ = s.Put(ctx, "sku", "p", []byte("payload"), time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Get(ctx, "sku", "p")
	}
}

func BenchmarkMemoryStore_Put(b *testing.B) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	payload := []byte("payload")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Put(ctx, "sku", "p", payload, time.Hour)
	}
}

func BenchmarkHashKeyer_Search(b *testing.B) {
	var k HashKeyer

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = k.Key("search", SearchInput("rtx 4070", "gpu", 10))
	}
}

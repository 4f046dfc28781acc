package funding

import (
	"fmt"
	"testing"
)

func TestMemoryCacheIdempotentAdd(t *testing.T) {
	cache := NewMemoryCache(100)
	key := CacheKey("alert", "Binance", "BTCUSDT", 1700000000000, "15:1:1")

	if !cache.Add(key) {
		t.Fatal("first add must report new")
	}
	for i := 0; i < 5; i++ {
		if cache.Add(key) {
			t.Fatal("repeat add must be a silent no-op")
		}
	}
	if cache.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", cache.Len())
	}
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	cache := NewMemoryCache(3)
	for i := 0; i < 5; i++ {
		cache.Add(fmt.Sprintf("key-%d", i))
	}

	if cache.Len() != 3 {
		t.Fatalf("cap not enforced: %d", cache.Len())
	}
	// The two oldest were evicted and may fire again.
	if !cache.Add("key-0") {
		t.Fatal("evicted key should be addable again")
	}
	// The newest survived.
	if cache.Add("key-4") {
		t.Fatal("recent key must still be suppressed")
	}
}

func TestMemoryCacheClear(t *testing.T) {
	cache := NewMemoryCache(10)
	cache.Add("a")
	cache.Add("b")
	cache.Clear()

	if cache.Len() != 0 {
		t.Fatalf("clear left %d entries", cache.Len())
	}
	if !cache.Add("a") {
		t.Fatal("cleared key should be new again")
	}
}

func TestCacheKeyComposition(t *testing.T) {
	a := CacheKey("alert", "Binance", "BTCUSDT", 1700000000000, "15:1:1")
	b := CacheKey("alert", "Binance", "BTCUSDT", 1700000000000, "5:1:1")
	if a == b {
		t.Fatal("different rule extras must produce different keys")
	}
	c := CacheKey("log", "Binance", "BTCUSDT", 1700000000000, "15:1:1")
	if a == c {
		t.Fatal("different kinds must produce different keys")
	}
}

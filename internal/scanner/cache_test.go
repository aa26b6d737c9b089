package scanner

import (
	"context"
	"testing"
	"time"
)

func report(asset, scanID string) *GroupReport {
	return &GroupReport{Asset: asset, ScanID: scanID}
}

func TestMemoryCacheHitAndExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(30*time.Millisecond, 8)

	cache.Set(ctx, "BTC", report("BTC", "scan-1"))

	got, ok := cache.Get(ctx, "BTC")
	if !ok || got.ScanID != "scan-1" {
		t.Fatal("expected a fresh cache hit")
	}

	time.Sleep(50 * time.Millisecond)
	if _, ok := cache.Get(ctx, "BTC"); ok {
		t.Error("expected a miss after the TTL elapsed")
	}
}

func TestMemoryCacheMissForUnknownAsset(t *testing.T) {
	cache := NewMemoryCache(time.Minute, 8)
	if _, ok := cache.Get(context.Background(), "ETH"); ok {
		t.Error("expected a miss for an asset never stored")
	}
}

func TestMemoryCacheEvictsAtCapacity(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Minute, 2)

	cache.Set(ctx, "BTC", report("BTC", "scan-1"))
	time.Sleep(5 * time.Millisecond)
	cache.Set(ctx, "ETH", report("ETH", "scan-2"))
	time.Sleep(5 * time.Millisecond)
	cache.Set(ctx, "SOL", report("SOL", "scan-3"))

	// BTC was closest to expiry and should have been evicted.
	if _, ok := cache.Get(ctx, "BTC"); ok {
		t.Error("expected the stalest entry to be evicted at capacity")
	}
	if _, ok := cache.Get(ctx, "ETH"); !ok {
		t.Error("expected ETH to survive eviction")
	}
	if _, ok := cache.Get(ctx, "SOL"); !ok {
		t.Error("expected SOL to survive eviction")
	}
}

func TestMemoryCacheClear(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Minute, 8)

	cache.Set(ctx, "BTC", report("BTC", "scan-1"))
	cache.Clear()

	if _, ok := cache.Get(ctx, "BTC"); ok {
		t.Error("expected an empty cache after Clear")
	}
}

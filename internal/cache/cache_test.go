package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matthewgall/epicdeals/internal/config"
	"github.com/matthewgall/epicdeals/internal/models"
)

func setupTestCache(t *testing.T) Cache {
	t.Helper()
	c, err := NewWithPath(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test cache: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("Failed to close test cache: %v", err)
		}
	})
	return c
}

func TestCache_GetSet(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	result, err := c.Get(ctx, models.ProviderBrave, "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if result != nil {
		t.Fatal("Get() should return nil for a missing key")
	}

	payload := map[string]string{"title": "Sony WH-1000XM5"}
	if err := c.Set(ctx, models.ProviderBrave, "q:sony", payload, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	result, err = c.Get(ctx, models.ProviderBrave, "q:sony")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if result == nil {
		t.Fatal("Get() should return the stored entry")
	}
	if result.PayloadJSON != `{"title":"Sony WH-1000XM5"}` {
		t.Errorf("unexpected payload %s", result.PayloadJSON)
	}
	if result.TTLSeconds != 3600 {
		t.Errorf("expected ttl 3600, got %d", result.TTLSeconds)
	}
}

func TestCache_SameKeyDifferentProviders(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, models.ProviderBrave, "shared", "brave", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, models.ProviderEBayDeals, "shared", "deals", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	brave, _, err := Lookup[string](ctx, c, models.ProviderBrave, "shared")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	deals, _, err := Lookup[string](ctx, c, models.ProviderEBayDeals, "shared")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if brave != "brave" || deals != "deals" {
		t.Errorf("entries collided: brave=%q deals=%q", brave, deals)
	}
}

func TestCache_SetOverwrites(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, models.ProviderEBay, "k", 1, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, models.ProviderEBay, "k", 2, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, ok, err := Lookup[int](ctx, c, models.ProviderEBay, "k")
	if err != nil || !ok {
		t.Fatalf("Lookup() = %v, %v", ok, err)
	}
	if value != 2 {
		t.Errorf("expected overwritten value 2, got %d", value)
	}
}

func TestCache_SetRejectsUnknownProvider(t *testing.T) {
	c := setupTestCache(t)
	if err := c.Set(context.Background(), models.Provider("brickset"), "k", 1, time.Hour); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestCache_Delete(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, models.ProviderEBayDeals, "page:/deals", "html", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Delete(ctx, models.ProviderEBayDeals, "page:/deals"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	result, err := c.Get(ctx, models.ProviderEBayDeals, "page:/deals")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if result != nil {
		t.Error("Delete() should have removed key")
	}
}

func TestCache_ClearExpired(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	// sub-second TTLs truncate to zero seconds and are expired on write
	if err := c.Set(ctx, models.ProviderBrave, "expired", "x", 50*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, models.ProviderBrave, "valid", "y", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	removed, err := c.ClearExpired(ctx)
	if err != nil {
		t.Fatalf("ClearExpired() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed entry, got %d", removed)
	}

	if result, _ := c.Get(ctx, models.ProviderBrave, "valid"); result == nil {
		t.Error("ClearExpired() should not have removed the valid entry")
	}
}

func TestCache_ClearAll(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, models.ProviderBrave, "a", 1, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.Set(ctx, models.ProviderEBayDeals, "b", 2, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := c.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}

	for _, key := range []string{"a", "b"} {
		for _, provider := range []models.Provider{models.ProviderBrave, models.ProviderEBayDeals} {
			if result, _ := c.Get(ctx, provider, key); result != nil {
				t.Errorf("ClearAll() left %s/%s", provider, key)
			}
		}
	}
}

func TestLookupAndStore_NilCache(t *testing.T) {
	ctx := context.Background()
	if err := Store(ctx, nil, models.ProviderBrave, "k", "v", time.Hour); err != nil {
		t.Fatalf("Store() on nil cache error = %v", err)
	}
	_, ok, err := Lookup[string](ctx, nil, models.ProviderBrave, "k")
	if err != nil || ok {
		t.Fatalf("Lookup() on nil cache = %v, %v", ok, err)
	}
}

func TestOpen(t *testing.T) {
	c, err := Open(config.CacheConfig{Provider: "none"})
	if err != nil || c != nil {
		t.Fatalf("Open(none) = %v, %v", c, err)
	}

	c, err = Open(config.CacheConfig{Provider: "sqlite", Directory: t.TempDir()})
	if err != nil {
		t.Fatalf("Open(sqlite) error = %v", err)
	}
	defer c.Close()
	if err := c.Set(context.Background(), models.ProviderBrave, "k", "v", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := Open(config.CacheConfig{Provider: "memcached"}); err != ErrUnknownProvider {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestLookup_EvictsUndecodableEntry(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, models.ProviderBrave, "q:tv", "not an object", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, ok, err := Lookup[map[string]int](ctx, c, models.ProviderBrave, "q:tv"); err == nil || ok {
		t.Fatalf("Lookup() = %v, %v; want decode error", ok, err)
	}
	if entry, err := c.Get(ctx, models.ProviderBrave, "q:tv"); err != nil || entry != nil {
		t.Fatalf("Get() after failed decode = %v, %v; want evicted", entry, err)
	}
}

func TestNewWithPath_RejectsNonDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	if err := os.WriteFile(path, []byte("this is not a sqlite database, just some text padding it out"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if c, err := NewWithPath(path); err == nil {
		_ = c.Close()
		t.Fatal("NewWithPath() on a non-database file succeeded")
	}

	// the failed open must not hold the file
	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	c, err := NewWithPath(path)
	if err != nil {
		t.Fatalf("NewWithPath() after cleanup error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

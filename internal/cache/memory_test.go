package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheSetGetDelete(t *testing.T) {
	c := NewMemory("test")
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "v" {
		t.Errorf("expected v, got %s", v)
	}

	ok, err := c.Exists(ctx, "k")
	if err != nil || !ok {
		t.Errorf("expected exists, got %v %v", ok, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !IsNotFound(err) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	c := NewMemory("")
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", 20*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != nil {
		t.Fatalf("get before expiry: %v", err)
	}

	time.Sleep(40 * time.Millisecond)
	if _, err := c.Get(ctx, "k"); !IsNotFound(err) {
		t.Errorf("expected expiry, got %v", err)
	}
}

func TestMemoryCacheStats(t *testing.T) {
	c := NewMemory("")
	ctx := context.Background()

	_ = c.Set(ctx, "k", "v", 0)
	_, _ = c.Get(ctx, "k")       // hit
	_, _ = c.Get(ctx, "missing") // miss

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Driver != "memory" {
		t.Errorf("expected memory driver, got %s", stats.Driver)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", stats.Hits, stats.Misses)
	}
	if stats.Keys != 1 {
		t.Errorf("expected 1 key, got %d", stats.Keys)
	}
}

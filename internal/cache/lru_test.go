package cache

import (
	"context"
	"testing"
	"time"

	"dompet/internal/log"
)

func TestLRUCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](2, time.Minute)

	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	if v, ok := c.Get(ctx, "a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %v %v", v, ok)
	}

	// a was used last, so b is evicted.
	c.Set(ctx, "c", 3)
	if _, ok := c.Get(ctx, "b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", "v")
	c.Set(ctx, "k2", "v2")
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expected expired entry")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 cleaned, got %d", n)
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](10, time.Minute)
	c.Set(ctx, "user:1:dashboard", 1)
	c.Set(ctx, "user:1:summary:expense", 2)
	c.Set(ctx, "user:10:dashboard", 3)

	c.DeletePrefix(ctx, "user:1:")
	if _, ok := c.Get(ctx, "user:1:dashboard"); ok {
		t.Fatal("user 1 entries must be gone")
	}
	if _, ok := c.Get(ctx, "user:10:dashboard"); !ok {
		t.Fatal("user 10 entry must survive")
	}
}

func TestManagerStop(t *testing.T) {
	m := NewManager(log.Discard())
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.Register("not a cache")
	if len(m.caches) != 1 {
		t.Fatalf("expected one registered cleaner, got %d", len(m.caches))
	}
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	m.Stop()
}

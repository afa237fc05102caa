package cache

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestMemoryCachePutGet(t *testing.T) {
	c := NewMemoryCache(1024)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := c.Put("a", []byte("hello")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit")
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("expected %q, got %q", "hello", got)
	}
}

func TestMemoryCacheUpdateExisting(t *testing.T) {
	c := NewMemoryCache(1024)

	if err := c.Put("a", []byte("first")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Put("a", []byte("second value")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := c.Get("a")
	if !ok || string(got) != "second value" {
		t.Fatalf("expected updated value, got %q (%v)", got, ok)
	}
	if c.Size() != int64(len("second value")) {
		t.Fatalf("size not adjusted on update: %d", c.Size())
	}
}

func TestMemoryCacheUpdateEvictsWhenGrowing(t *testing.T) {
	c := NewMemoryCache(100)

	if err := c.Put("a", make([]byte, 40)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Put("b", make([]byte, 40)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Growing a in place overshoots the capacity; b is the LRU victim.
	if err := c.Put("a", make([]byte, 90)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Contains("b") {
		t.Fatal("expected b evicted after update overshoot")
	}
	if got, ok := c.Get("a"); !ok || len(got) != 90 {
		t.Fatalf("expected updated 90-byte value, got %d bytes (%v)", len(got), ok)
	}
	if c.Size() != 90 {
		t.Fatalf("expected size 90, got %d", c.Size())
	}

	// An update larger than the whole cache is rejected outright.
	if err := c.Put("a", make([]byte, 101)); !errors.Is(err, ErrItemTooLarge) {
		t.Fatalf("expected ErrItemTooLarge, got %v", err)
	}
}

func TestMemoryCacheTooLarge(t *testing.T) {
	c := NewMemoryCache(8)
	err := c.Put("big", make([]byte, 16))
	if !errors.Is(err, ErrItemTooLarge) {
		t.Fatalf("expected ErrItemTooLarge, got %v", err)
	}
}

func TestMemoryCacheLRUEviction(t *testing.T) {
	c := NewMemoryCache(30)

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("key%d", i)
		if err := c.Put(key, make([]byte, 10)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Touch key0 so key1 becomes the LRU victim.
	if _, ok := c.Get("key0"); !ok {
		t.Fatal("expected key0 present")
	}
	if err := c.Put("key3", make([]byte, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Contains("key1") {
		t.Fatal("expected key1 evicted")
	}
	if !c.Contains("key0") || !c.Contains("key2") || !c.Contains("key3") {
		t.Fatal("unexpected eviction victim")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Fatalf("expected 1 eviction, got %d", got)
	}
}

func TestMemoryCacheDeleteAndClear(t *testing.T) {
	c := NewMemoryCache(1024)

	if err := c.Put("a", []byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Delete("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Delete("a"); err != nil {
		t.Fatalf("delete of missing key should be nil, got %v", err)
	}
	if c.Contains("a") {
		t.Fatal("expected key gone")
	}

	if err := c.Put("b", []byte("y")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, size %d", c.Size())
	}
}

func TestMemoryCacheStats(t *testing.T) {
	c := NewMemoryCache(1024)

	if err := c.Put("a", []byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Fatalf("expected 2 hits 1 miss, got %d/%d", stats.Hits, stats.Misses)
	}
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Fatalf("unexpected hit rate %f", stats.HitRate)
	}
	if stats.ItemCount != 1 {
		t.Fatalf("expected 1 item, got %d", stats.ItemCount)
	}
}

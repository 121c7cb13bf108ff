package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/pj-tributario-go/internal/infra/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("2025-05|50000|600000", "result")
	val, ok := c.Get("2025-05|50000|600000")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "result" {
		t.Errorf("expected 'result', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[string](time.Minute, cache.WithClock(clock.Now))
	defer c.Close()

	c.Set("key1", "value1")
	clock.Advance(59 * time.Second)
	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected entry before ttl")
	}

	clock.Advance(2 * time.Second)
	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	c.Set("key1", 42)
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_DisabledWithZeroTTL(t *testing.T) {
	c := cache.New[int](0)
	defer c.Close()

	c.Set("key1", 1)
	if _, ok := c.Get("key1"); ok {
		t.Fatal("zero ttl must not store entries")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
}

func TestCache_MaxEntriesEvictsOldest(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[int](time.Hour, cache.WithMaxEntries(2), cache.WithClock(clock.Now))
	defer c.Close()

	c.Set("a", 1)
	clock.Advance(time.Second)
	c.Set("b", 2)
	clock.Advance(time.Second)
	c.Set("c", 3)

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	for _, k := range []string{"b", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %q to survive", k)
		}
	}

	// Overwriting an existing key never evicts.
	c.Set("b", 20)
	if v, _ := c.Get("b"); v != 20 || c.Len() != 2 {
		t.Errorf("unexpected state after overwrite: b=%d len=%d", v, c.Len())
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n%26))
			c.Set(key, n)
			c.Get(key)
		}(i)
	}
	wg.Wait()
}

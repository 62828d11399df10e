package cache

import (
	"fmt"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, idle time.Duration) (*LRUCache[string], *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, idle)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_Eviction(t *testing.T) {
	c, _ := newTestCache(3, time.Hour)

	var evicted []string
	c.OnEvict(func(key, _ string) { evicted = append(evicted, key) })

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1") // key2 is now least recently used
	c.Set("key4", "value4")

	if _, found := c.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
	for _, k := range []string{"key1", "key3", "key4"} {
		if _, found := c.Get(k); !found {
			t.Errorf("%s should still be present", k)
		}
	}
	if len(evicted) != 1 || evicted[0] != "key2" {
		t.Errorf("evicted = %v, want [key2]", evicted)
	}
	if c.Size() != 3 {
		t.Errorf("Size() = %d, want 3", c.Size())
	}
}

func TestLRUCache_IdleExpiry(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")

	clk.advance(40 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}

	// a was touched 40s in, b was not
	clk.advance(40 * time.Second)
	if _, ok := c.Get("b"); ok {
		t.Error("b should have expired")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Errorf("a = %q, %v; want 1, true", v, ok)
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v")
	}
	clk.advance(30 * time.Second)
	c.Set("fresh", "v")
	clk.advance(45 * time.Second)

	if removed := c.CleanExpired(); removed != 5 {
		t.Errorf("CleanExpired() = %d, want 5", removed)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_DeleteSkipsEvictCallback(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	called := false
	c.OnEvict(func(string, string) { called = true })

	c.Set("a", "1")
	c.Delete("a")

	if called {
		t.Error("OnEvict should not run for Delete")
	}
	if _, ok := c.Get("a"); ok {
		t.Error("a should be gone")
	}
}

func TestLRUCache_SetOverwrites(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("a", "2")

	if v, _ := c.Get("a"); v != "2" {
		t.Errorf("Get(a) = %q, want 2", v)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestJanitor_StartStop(t *testing.T) {
	c, clk := newTestCache(2, time.Millisecond)
	c.Set("a", "1")
	clk.advance(time.Second)

	j := NewJanitor(nil)
	j.Register(c)
	j.Start(5 * time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for c.Size() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	j.Stop()

	if c.Size() != 0 {
		t.Errorf("Size() = %d after sweep, want 0", c.Size())
	}
}

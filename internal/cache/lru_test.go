// Affinity - User Matching Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cache

import (
	"sync"
	"testing"
	"time"
)

func TestLRU_BasicOperations(t *testing.T) {
	c := NewLRU[int64, string](3, time.Minute)

	c.Add(1, "a")
	c.Add(2, "b")
	c.Add(3, "c")

	for id, want := range map[int64]string{1: "a", 2: "b", 3: "c"} {
		got, found := c.Get(id)
		if !found || got != want {
			t.Errorf("Get(%d) = %q, %v; want %q, true", id, got, found, want)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Expected len 3, got %d", c.Len())
	}
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[string, int](3, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	// Access 'a' to make it most recently used
	c.Get("a")

	// Add new item, should evict 'b' (least recently used)
	c.Add("d", 4)

	if _, found := c.Get("b"); found {
		t.Error("Expected 'b' to be evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, found := c.Get(k); !found {
			t.Errorf("Expected %q to be present", k)
		}
	}
}

func TestLRU_Expiration(t *testing.T) {
	c := NewLRU[string, int](10, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Add("a", 1)
	now = now.Add(59 * time.Second)
	if _, found := c.Get("a"); !found {
		t.Error("Expected 'a' before expiry")
	}

	now = now.Add(2 * time.Second)
	if _, found := c.Get("a"); found {
		t.Error("Expected 'a' to be expired")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry to be dropped, len = %d", c.Len())
	}
}

func TestLRU_UpdateRefreshes(t *testing.T) {
	c := NewLRU[string, int](2, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("a", 10)
	c.Add("c", 3)

	if got, found := c.Get("a"); !found || got != 10 {
		t.Errorf("Get(a) = %d, %v; want 10, true", got, found)
	}
	if _, found := c.Get("b"); found {
		t.Error("Expected 'b' to be evicted after 'a' was refreshed")
	}
}

func TestLRU_RemoveAndClear(t *testing.T) {
	c := NewLRU[string, int](10, time.Minute)
	c.Add("a", 1)
	c.Add("b", 2)

	if !c.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if c.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
	c.Add("z", 26)
	if got, _ := c.Get("z"); got != 26 {
		t.Errorf("Get(z) after Clear = %d, want 26", got)
	}
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU[string, int](10, time.Minute)
	c.Add("a", 1)
	c.Get("a")
	c.Get("missing")

	hits, misses, size := c.Stats()
	if hits != 1 || misses != 1 || size != 1 {
		t.Errorf("Stats() = %d, %d, %d; want 1, 1, 1", hits, misses, size)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, int](100, time.Minute)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range 1000 {
				c.Add(g*1000+i, i)
				c.Get(i)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d, want <= capacity", c.Len())
	}
}

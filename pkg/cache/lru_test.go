package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := NewLRUCache(10, 5*time.Second)
	c.Set("risk/summary", []byte(`{"High":2}`))

	got, ok := c.Get("risk/summary")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != `{"High":2}` {
		t.Fatalf("got %q", string(got))
	}

	if _, ok := c.Get("risk/other"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestGetExpired(t *testing.T) {
	c := NewLRUCache(10, 30*time.Millisecond)
	c.Set("k", []byte("v"))
	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after TTL")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not dropped, size %d", c.Size())
	}
}

func TestEvictsOldestAtCapacity(t *testing.T) {
	c := NewLRUCache(2, 5*time.Second)
	c.Set("a", []byte("1"))
	time.Sleep(time.Millisecond)
	c.Set("b", []byte("2"))
	time.Sleep(time.Millisecond)
	c.Set("c", []byte("3"))

	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	for _, key := range []string{"b", "c"} {
		if _, ok := c.Get(key); !ok {
			t.Fatalf("%q missing", key)
		}
	}
}

func TestSetUpdatesInPlace(t *testing.T) {
	c := NewLRUCache(10, 5*time.Second)
	c.Set("k", []byte("old"))
	c.Set("k", []byte("new"))

	got, _ := c.Get("k")
	if string(got) != "new" {
		t.Fatalf("got %q, want new", string(got))
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
}

func TestInvalidate(t *testing.T) {
	c := NewLRUCache(10, 5*time.Second)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("invalidated key still present")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("unrelated key dropped")
	}

	c.InvalidateAll()
	if c.Size() != 0 {
		t.Fatalf("size = %d after InvalidateAll", c.Size())
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := NewLRUCache(64, 5*time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j)
				c.Set(key, []byte("v"))
				c.Get(key)
				if j%10 == 0 {
					c.Invalidate(key)
				}
			}
		}(i)
	}
	wg.Wait()

	if c.Size() > 64 {
		t.Fatalf("size %d exceeds capacity", c.Size())
	}
}

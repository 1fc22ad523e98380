package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestGetPut(t *testing.T) {
	c := New(4, time.Minute)
	now := time.Now()

	if _, ok := c.Get("a", now); ok {
		t.Error("empty cache reported a hit")
	}
	c.Put("a", []byte(`{"x":1}`))
	body, ok := c.Get("a", now)
	if !ok || string(body) != `{"x":1}` {
		t.Errorf("got %q, %v", body, ok)
	}
}

func TestExpiry(t *testing.T) {
	c := New(4, 30*time.Second)
	c.Put("a", []byte("v"))

	if _, ok := c.Get("a", time.Now()); !ok {
		t.Error("fresh entry should hit")
	}
	if _, ok := c.Get("a", time.Now().Add(31*time.Second)); ok {
		t.Error("expired entry should miss")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not evicted, len=%d", c.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(3, time.Minute)
	now := time.Now()
	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("k%d", i), []byte("v"))
	}
	// Touch k0 so k1 becomes the eviction candidate.
	c.Get("k0", now)
	c.Put("k3", []byte("v"))

	if _, ok := c.Get("k1", now); ok {
		t.Error("k1 should have been evicted")
	}
	for _, k := range []string{"k0", "k2", "k3"} {
		if _, ok := c.Get(k, now); !ok {
			t.Errorf("%s should survive", k)
		}
	}
}

func TestPutOverwrites(t *testing.T) {
	c := New(2, time.Minute)
	c.Put("a", []byte("old"))
	c.Put("a", []byte("new"))
	body, _ := c.Get("a", time.Now())
	if string(body) != "new" {
		t.Errorf("got %q", body)
	}
	if c.Len() != 1 {
		t.Errorf("duplicate key grew the cache, len=%d", c.Len())
	}
}

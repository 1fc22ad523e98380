// Package cache holds recently assembled response bodies keyed by token
// hash, so repeated page loads within the TTL skip the upstream fan-out.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// ResponseCache is a bounded LRU with TTL. Values are serialized JSON
// bodies; keys are token hashes, never raw tokens.
type ResponseCache struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	items map[string]*list.Element
	lru   *list.List
}

type entry struct {
	key    string
	body   []byte
	expiry time.Time
}

func New(capacity int, ttl time.Duration) *ResponseCache {
	if capacity <= 0 {
		capacity = 10_000
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ResponseCache{
		cap:   capacity,
		ttl:   ttl,
		items: make(map[string]*list.Element, capacity/2),
		lru:   list.New(),
	}
}

// Get returns the cached body and whether it was a live hit. Expired
// entries are dropped on access.
func (c *ResponseCache) Get(key string, now time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		val := el.Value.(*entry)
		if now.Before(val.expiry) {
			c.lru.MoveToFront(el)
			return val.body, true
		}
		// expired
		delete(c.items, key)
		c.lru.Remove(el)
	}
	return nil, false
}

// Put stores a body under key, evicting the least recently used entry
// when the cache is full.
func (c *ResponseCache) Put(key string, body []byte) {
	ent := &entry{
		key:    key,
		body:   body,
		expiry: time.Now().Add(c.ttl),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value = ent
		c.lru.MoveToFront(el)
		return
	}
	if c.lru.Len() >= c.cap {
		if back := c.lru.Back(); back != nil {
			del := back.Value.(*entry)
			delete(c.items, del.key)
			c.lru.Remove(back)
		}
	}
	el := c.lru.PushFront(ent)
	c.items[key] = el
}

func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

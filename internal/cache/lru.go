package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is a size-bounded cache whose entries expire after a period of
// inactivity. Every successful Get pushes the expiry forward.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	idle    time.Duration
	items   map[string]*list.Element
	lru     *list.List
	onEvict func(key string, data T)
	now     func() time.Time
}

type entry[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

// NewLRUCache returns a cache holding at most maxSize entries, each dropped
// after idle without access.
func NewLRUCache[T any](maxSize int, idle time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		idle:    idle,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// OnEvict registers a callback for entries removed by expiry or capacity
// pressure. It is not called for explicit Delete. The callback runs with the
// cache lock held and must not call back into the cache.
func (c *LRUCache[T]) OnEvict(fn func(key string, data T)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := elem.Value.(*entry[T])
	now := c.now()
	if now.After(e.expiresAt) {
		c.evict(elem)
		return zero, false
	}

	e.expiresAt = now.Add(c.idle)
	c.lru.MoveToFront(elem)
	return e.data, true
}

func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.idle)
	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[T])
		e.data = data
		e.expiresAt = expiresAt
		c.lru.MoveToFront(elem)
		return
	}

	c.items[key] = c.lru.PushFront(&entry[T]{key: key, data: data, expiresAt: expiresAt})

	for c.lru.Len() > c.maxSize {
		c.evict(c.lru.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
}

// CleanExpired drops every expired entry and reports how many were removed.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			c.evict(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[T]) evict(elem *list.Element) {
	e := c.remove(elem)
	if c.onEvict != nil {
		c.onEvict(e.key, e.data)
	}
}

func (c *LRUCache[T]) remove(elem *list.Element) *entry[T] {
	e := elem.Value.(*entry[T])
	delete(c.items, e.key)
	c.lru.Remove(elem)
	return e
}

package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key     K
	value   V
	expires time.Time
}

// Option configures an LRU.
type Option func(*settings)

type settings struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL expires entries ttl after they were last written. Expired entries
// are dropped lazily, on access or when they reach the eviction end.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) { s.ttl = ttl }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// LRU is a thread-safe cache bounded by entry count. When full, the least
// recently used entry is evicted.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	settings settings
	items    map[K]*list.Element
	order    *list.List
	onEvict  func(key K, value V)
}

// New creates an LRU holding at most capacity entries. It panics if capacity
// is not positive.
func New[K comparable, V any](capacity int, opts ...Option) *LRU[K, V] {
	if capacity <= 0 {
		panic("cache: capacity must be positive")
	}
	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return &LRU[K, V]{
		capacity: capacity,
		settings: s,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

// OnEvict sets a callback for entries removed by capacity, expiry, Remove
// or Clear. It runs with the cache locked and must not call back into it.
func (c *LRU[K, V]) OnEvict(fn func(key K, value V)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Get returns the value for key and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lookup(key); ok {
		c.order.MoveToFront(e)
		return e.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Put stores value under key and returns the previous value, if any.
func (c *LRU[K, V]) Put(key K, value V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lookup(key); ok {
		ent := e.Value.(*entry[K, V])
		old := ent.value
		ent.value = value
		ent.expires = c.expiry()
		c.order.MoveToFront(e)
		return old, true
	}
	c.insert(key, value)
	var zero V
	return zero, false
}

// PutIfAbsent stores value only when key is not present. It returns the
// existing value and true when key was already cached. The check and the
// insert are atomic.
func (c *LRU[K, V]) PutIfAbsent(key K, value V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lookup(key); ok {
		c.order.MoveToFront(e)
		return e.Value.(*entry[K, V]).value, true
	}
	c.insert(key, value)
	var zero V
	return zero, false
}

// Remove deletes key and returns its value if it was present.
func (c *LRU[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.remove(e)
		return e.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Len returns the number of entries, including expired ones not yet dropped.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes all entries.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for _, e := range c.items {
			ent := e.Value.(*entry[K, V])
			c.onEvict(ent.key, ent.value)
		}
	}
	clear(c.items)
	c.order.Init()
}

// lookup returns the live element for key, dropping it if expired.
// Must be called with lock held.
func (c *LRU[K, V]) lookup(key K) (*list.Element, bool) {
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if c.expired(e.Value.(*entry[K, V])) {
		c.remove(e)
		return nil, false
	}
	return e, true
}

// Must be called with lock held.
func (c *LRU[K, V]) insert(key K, value V) {
	e := c.order.PushFront(&entry[K, V]{key: key, value: value, expires: c.expiry()})
	c.items[key] = e

	for c.order.Len() > c.capacity {
		c.remove(c.order.Back())
	}
	// Expired entries at the tail are dead weight.
	for back := c.order.Back(); back != nil && back != e && c.expired(back.Value.(*entry[K, V])); back = c.order.Back() {
		c.remove(back)
	}
}

// Must be called with lock held.
func (c *LRU[K, V]) remove(e *list.Element) {
	c.order.Remove(e)
	ent := e.Value.(*entry[K, V])
	delete(c.items, ent.key)
	if c.onEvict != nil {
		c.onEvict(ent.key, ent.value)
	}
}

func (c *LRU[K, V]) expiry() time.Time {
	if c.settings.ttl <= 0 {
		return time.Time{}
	}
	return c.settings.now().Add(c.settings.ttl)
}

func (c *LRU[K, V]) expired(ent *entry[K, V]) bool {
	return !ent.expires.IsZero() && !c.settings.now().Before(ent.expires)
}

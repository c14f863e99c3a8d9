// Package cache holds compiled programs keyed by their source text.
//
// Compiling a script is far more expensive than evaluating it against a
// small document, so hosts that run the same script repeatedly keep the
// compiled *types.Program here and evaluate it many times.
//
// # Example
//
//	c := cache.New(128)
//	prog, err := c.GetOrCompile(src, func() (*types.Program, error) {
//		return parser.Compile(src)
//	})
package cache

import (
	"container/list"
	"sync"

	"github.com/grauwen/utl-x-sub015/pkg/types"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

type entry struct {
	key  string
	prog *types.Program
}

// Cache is a least-recently-used cache of compiled programs. It is safe for
// concurrent use.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element

	hits, misses uint64
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Len      int    `json:"len"`
	Capacity int    `json:"capacity"`
}

// New returns an empty cache holding at most capacity programs.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the program cached for src and marks it most recently used.
func (c *Cache) Get(src string) (*types.Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[src]
	if !ok {
		c.misses++
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return el.Value.(*entry).prog, true
}

// Set stores prog for src, evicting the least recently used program when
// the cache is full.
func (c *Cache) Set(src string, prog *types.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[src]; ok {
		el.Value.(*entry).prog = prog
		c.ll.MoveToFront(el)
		return
	}
	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}
	c.items[src] = c.ll.PushFront(&entry{key: src, prog: prog})
}

// GetOrCompile returns the cached program for src or compiles and caches
// it. Compilation failures are not cached.
func (c *Cache) GetOrCompile(src string, compile func() (*types.Program, error)) (*types.Program, error) {
	if prog, ok := c.Get(src); ok {
		return prog, nil
	}
	prog, err := compile()
	if err != nil {
		return nil, err
	}
	c.Set(src, prog)
	return prog, nil
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Capacity returns the maximum number of cached programs.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Stats returns a snapshot of the hit and miss counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Hits: c.hits, Misses: c.misses, Len: len(c.items), Capacity: c.capacity}
}

// Invalidate drops the program cached for src.
func (c *Cache) Invalidate(src string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[src]; ok {
		c.ll.Remove(el)
		delete(c.items, src)
	}
}

// Clear drops every cached program. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked must be called with c.mu held for writing.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}

// Package authcache implements the bounded LRU of CredentialManagers
// keyed by refresh token, described in spec.md §4.2: "the gateway must
// not grow one CredentialManager per observed refresh token forever".
package authcache

import (
	"container/list"
	"sync"

	"github.com/kiro-gateway/kiro-gateway/pkg/credential"
)

// Factory constructs a new *credential.Manager for a refresh token the
// cache hasn't seen (or has evicted). Supplied by the gateway wiring code
// so the cache itself stays ignorant of region/store/client details.
type Factory func(refreshToken string) *credential.Manager

// Cache is a bounded, mutex-guarded LRU mapping refresh token to
// *credential.Manager. Mutex-guarded rather than sync.Map because every
// Get also reorders the LRU list — a plain map of atomics would not give
// eviction-order consistency (grounded on pkg/keymanager/keymanager.go's
// explicit-mutex-over-map discipline).
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // list of *entry, front = most recently used
	index    map[string]*list.Element
	factory  Factory
}

type entry struct {
	key     string
	manager *credential.Manager
}

// New builds a Cache with the given capacity (spec.md §6.5
// "auth_cache_size", default 100) and Factory.
func New(capacity int, factory Factory) *Cache {
	if capacity <= 0 {
		capacity = 100
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[string]*list.Element),
		factory:  factory,
	}
}

// GetOrCreate returns the cached Manager for refreshToken, creating one
// via Factory on a miss, and evicting the least-recently-used entry if
// the cache is now over capacity.
func (c *Cache) GetOrCreate(refreshToken string) *credential.Manager {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[refreshToken]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*entry).manager
	}

	mgr := c.factory(refreshToken)
	el := c.ll.PushFront(&entry{key: refreshToken, manager: mgr})
	c.index[refreshToken] = el

	if c.ll.Len() > c.capacity {
		c.evictOldest()
	}

	return mgr
}

func (c *Cache) evictOldest() {
	oldest := c.ll.Back()
	if oldest == nil {
		return
	}
	c.ll.Remove(oldest)
	delete(c.index, oldest.Value.(*entry).key)
}

// Remove evicts refreshToken's entry, if present — used when a refresh
// dialect reports the credential as permanently rejected.
func (c *Cache) Remove(refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[refreshToken]
	if !ok {
		return
	}
	c.ll.Remove(el)
	delete(c.index, refreshToken)
}

// Size reports the current entry count.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.index = make(map[string]*list.Element)
}

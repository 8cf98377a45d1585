// ABOUTME: Thread-safe TTL cache of HTTP responses keyed by Idempotency-Key.
// ABOUTME: Lets a retried mutation replay its first response instead of running twice.

package dedupe

import (
	"container/list"
	"net/http"
	"sync"
	"time"
)

// Response is a captured HTTP response that can be written again verbatim.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// WriteTo replays the response onto w.
func (r *Response) WriteTo(w http.ResponseWriter) {
	if r.ContentType != "" {
		w.Header().Set("Content-Type", r.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(r.Status)
	_, _ = w.Write(r.Body)
}

// cacheEntry stores the claim time, list element and (once finished) the response.
// A nil response means the first request is still running.
type cacheEntry struct {
	timestamp time.Time
	element   *list.Element
	response  *Response
}

// Cache is a TTL-based, size-limited map from idempotency key to response.
// Insertion order is kept in a doubly-linked list for O(1) eviction.
type Cache struct {
	mu      sync.RWMutex
	seen    map[string]*cacheEntry
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a cache with the given TTL and maximum size and starts a
// background goroutine that drops expired entries every minute.
func New(ttl time.Duration, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	c := &Cache{
		seen:    make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Lookup returns the stored response for key, if it finished within the TTL.
func (c *Cache) Lookup(key string) (*Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.seen[key]
	if !ok || c.expired(entry) || entry.response == nil {
		return nil, false
	}
	return entry.response, true
}

// Claim atomically checks key and reserves it when unseen.
//
// It returns claimed=true when the caller owns the key and must finish with
// Complete or Release. Otherwise resp is the earlier response, or nil while the
// earlier request is still in flight.
func (c *Cache) Claim(key string) (resp *Response, claimed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.seen[key]; ok && !c.expired(entry) {
		return entry.response, false
	}
	c.putLocked(key, nil)
	return nil, true
}

// Complete stores the response for a claimed key.
func (c *Cache) Complete(key string, resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, resp)
}

// Release forgets a claimed key so the next request with it runs normally.
func (c *Cache) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Clear drops every entry and reports how many there were.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.seen)
	c.seen = make(map[string]*cacheEntry)
	c.order.Init()
	return n
}

// Len reports the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.seen)
}

func (c *Cache) expired(entry *cacheEntry) bool {
	return c.now().Sub(entry.timestamp) >= c.ttl
}

// putLocked inserts or refreshes key. Must be called with mu held.
func (c *Cache) putLocked(key string, resp *Response) {
	now := c.now()

	if entry, exists := c.seen[key]; exists {
		entry.timestamp = now
		entry.response = resp
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(key)
	c.seen[key] = &cacheEntry{
		timestamp: now,
		element:   elem,
		response:  resp,
	}
}

func (c *Cache) removeLocked(key string) {
	if entry, ok := c.seen[key]; ok {
		c.order.Remove(entry.element)
		delete(c.seen, key)
	}
}

// evictOldest removes the oldest entry. Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, key)
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

// runCleanup removes all expired entries and returns how many went.
func (c *Cache) runCleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, entry := range c.seen {
		if c.expired(entry) {
			c.order.Remove(entry.element)
			delete(c.seen, key)
			n++
		}
	}
	return n
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}

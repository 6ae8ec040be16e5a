// Package dedupe remembers the responses of idempotent commands so a retried
// request replays the first answer instead of applying twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10000

// Response is a stored command result. A zero Status marks a key whose first
// request is still in flight.
type Response struct {
	Status int
	Body   []byte
}

// Pending reports whether the first request for the key has not finished.
func (r Response) Pending() bool {
	return r.Status == 0
}

// Cache records idempotency keys and their responses.
type Cache interface {
	// SeenAndRecord atomically checks if key was seen and reserves it if not.
	// When seen it returns the stored response and true.
	SeenAndRecord(ctx context.Context, key string) (Response, bool)

	// Complete stores the response for a reserved key.
	Complete(ctx context.Context, key string, resp Response)

	// Unrecord drops key so the command can be retried, e.g. after a
	// failure that applied nothing.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key  string
	resp Response
}

// inMemoryCache keeps keys in insertion order and evicts the oldest.
type inMemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is newest
	maxSize int
	size    atomic.Int64
}

// NewInMemoryCache creates a new in-memory cache with configuration options.
func NewInMemoryCache(opts ...Option) Cache {
	c := &inMemoryCache{
		maxSize: defaultMaxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *inMemoryCache) SeenAndRecord(_ context.Context, key string) (Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		return el.Value.(*entry).resp, true
	}
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = c.order.PushFront(&entry{key: key})
	c.size.Add(1)
	return Response{}, false
}

func (c *inMemoryCache) Complete(_ context.Context, key string, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		// Evicted while in flight; record it again.
		if c.maxSize > 0 && len(c.entries) >= c.maxSize {
			c.evictOldest()
		}
		c.entries[key] = c.order.PushFront(&entry{key: key, resp: resp})
		c.size.Add(1)
		return
	}
	el.Value.(*entry).resp = resp
}

func (c *inMemoryCache) Unrecord(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
		c.size.Add(-1)
	}
}

// evictOldest must be called with c.mu held.
func (c *inMemoryCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.entries, el.Value.(*entry).key)
	c.size.Add(-1)
}

func (c *inMemoryCache) Size() int64 {
	return c.size.Load()
}

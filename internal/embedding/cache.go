package embedding

import (
	"container/list"
	"context"
	"sync"
)

// EmbeddingCache is an LRU cache for embeddings keyed by text.
type EmbeddingCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewEmbeddingCache creates a new cache with the given capacity.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &EmbeddingCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding for key if present.
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for key, evicting the least recently used entry at capacity.
func (c *EmbeddingCache) Set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}
	c.cache[key] = c.lru.PushFront(&cacheEntry{key: key, value: value})
	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CachedEmbedder checks the LRU, then the optional persistent cache, before calling the wrapped embedder.
type CachedEmbedder struct {
	next       Embedder
	lru        *EmbeddingCache
	persistent *PersistentCache
}

// NewCachedEmbedder wraps next. Either cache may be nil.
func NewCachedEmbedder(next Embedder, lru *EmbeddingCache, persistent *PersistentCache) *CachedEmbedder {
	return &CachedEmbedder{next: next, lru: lru, persistent: persistent}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.lru != nil {
		if v, ok := c.lru.Get(text); ok {
			return v, nil
		}
	}
	if c.persistent != nil {
		if v, ok := c.persistent.Get(text); ok && len(v) == c.next.Dimensions() {
			if c.lru != nil {
				c.lru.Set(text, v)
			}
			return v, nil
		}
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if c.lru != nil {
		c.lru.Set(text, v)
	}
	if c.persistent != nil {
		// a failed write only costs a recomputation later
		_ = c.persistent.Set(text, v)
	}
	return v, nil
}

func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, c, texts)
}

func (c *CachedEmbedder) Dimensions() int { return c.next.Dimensions() }

// WithPersistent attaches a persistent cache.
func (c *CachedEmbedder) WithPersistent(p *PersistentCache) *CachedEmbedder {
	c.persistent = p
	return c
}

// Close closes the wrapped embedder. The persistent cache is owned by the caller.
func (c *CachedEmbedder) Close() error { return c.next.Close() }

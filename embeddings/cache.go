package embeddings

import (
	"container/list"
	"context"
	"sync"
)

// Cached wraps an Embedder and keeps the most recent query vectors in an LRU.
// Document embeddings pass through uncached.
type Cached struct {
	Embedder
	mu    sync.Mutex
	cap   int
	ll    *list.List
	items map[string]*list.Element
	hits  int
}

type cacheEntry struct {
	key string
	vec []float32
}

// NewCached returns inner unchanged when capacity <= 0.
func NewCached(inner Embedder, capacity int) Embedder {
	if capacity <= 0 || inner == nil {
		return inner
	}
	return &Cached{
		Embedder: inner,
		cap:      capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// EmbedQuery returns a cached vector for text when present. The key is the
// exact text the inner embedder receives.
func (c *Cached) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := text
	if vec, ok := c.get(key); ok {
		return vec, nil
	}
	vec, err := c.Embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		c.add(key, vec)
	}
	return cloneVec(vec), nil
}

// Hits reports how many queries were served from the cache.
func (c *Cached) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

func (c *Cached) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return cloneVec(el.Value.(*cacheEntry).vec), true
}

func (c *Cached) add(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).vec = cloneVec(vec)
		c.ll.MoveToFront(el)
		return
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, vec: cloneVec(vec)})
	if c.ll.Len() > c.cap {
		back := c.ll.Back()
		c.ll.Remove(back)
		delete(c.items, back.Value.(*cacheEntry).key)
	}
}

func cloneVec(vec []float32) []float32 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}

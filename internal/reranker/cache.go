package reranker

import "sync"

// Cache is the process-wide reranker model cache keyed by file path, per
// spec §5 "a process-wide reranker model cache keyed by file path, loaded
// once per path, cleared by path mismatch." Safe for concurrent reads; a
// mutex guards the rare write on cache miss or path change.
type Cache struct {
	mu   sync.RWMutex
	path string
	m    *Model
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the model for path, loading it from disk on first use or on
// a path change. Load failure returns (nil, err); callers must pass
// through unchanged rather than fail the request (spec §4.2, §9 "Reranker
// model caching... load failure means pass-through, not request failure").
func (c *Cache) Get(path string) (*Model, error) {
	c.mu.RLock()
	if c.path == path && c.m != nil {
		m := c.m
		c.mu.RUnlock()
		return m, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == path && c.m != nil {
		return c.m, nil
	}

	m, err := LoadModel(path)
	if err != nil {
		return nil, err
	}

	c.path = path
	c.m = m
	return m, nil
}

package engine

import "sync"

// VectorCache stores embedding vectors keyed by exact source text. Identical
// content shares a vector; a cache hit returns the exact same slice, so
// callers must treat cached vectors as read-only.
//
// Construct one instance per composition root and thread it through — there
// is deliberately no package-level singleton.
type VectorCache struct {
	mu      sync.RWMutex
	vectors map[string][]float64
}

// NewVectorCache creates an empty cache. Unbounded until Clear is called.
func NewVectorCache() *VectorCache {
	return &VectorCache{vectors: make(map[string][]float64)}
}

// Get returns the cached vector for text, if present.
func (c *VectorCache) Get(text string) ([]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.vectors[text]
	return vec, ok
}

// Insert stores vec for text if no vector is present yet and returns the
// canonical stored vector. Concurrent racers computing the same missing
// entry converge on whichever insert won.
func (c *VectorCache) Insert(text string, vec []float64) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.vectors[text]; ok {
		return existing
	}
	c.vectors[text] = vec
	return vec
}

// Len returns the number of cached vectors.
func (c *VectorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// Clear drops all cached vectors.
func (c *VectorCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vectors = make(map[string][]float64)
}

package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/aerod3d9/cmdstream"
	"github.com/gogpu/aerod3d9/shader"
)

// shaderEntry is one cached synthesized program.
type shaderEntry struct {
	handle cmdstream.Handle
	tokens []byte
}

// VariantCache caches synthesized fixed-function programs by recipe.
// Each distinct recipe is synthesized and assigned a backend handle
// exactly once per device; state changes that canonicalize to a known
// recipe reuse the cached program.
//
// VariantCache is safe for concurrent use. It uses RWMutex with
// double-check locking for efficient reads and safe writes.
type VariantCache struct {
	// mu protects the maps.
	mu sync.RWMutex

	// vs and ps store programs indexed by their synthesis recipes.
	vs map[shader.VSRecipe]*shaderEntry
	ps map[shader.PSRecipe]*shaderEntry

	// alloc returns a fresh non-zero backend handle.
	alloc func() cmdstream.Handle

	// hits and misses count cache traffic (atomic for lock-free reads).
	hits   uint64
	misses uint64
}

// NewVariantCache creates an empty cache drawing handles from alloc.
func NewVariantCache(alloc func() cmdstream.Handle) *VariantCache {
	return &VariantCache{
		vs:    make(map[shader.VSRecipe]*shaderEntry),
		ps:    make(map[shader.PSRecipe]*shaderEntry),
		alloc: alloc,
	}
}

// VertexProgram returns the cached program for a recipe, synthesizing it
// on first use. created reports whether this call synthesized the
// program; when true the caller must issue CREATE_SHADER with the handle
// and tokens before binding it.
func (c *VariantCache) VertexProgram(r shader.VSRecipe) (entry *shaderEntry, created bool) {
	c.mu.RLock()
	if e, ok := c.vs[r]; ok {
		c.mu.RUnlock()
		atomic.AddUint64(&c.hits, 1)
		return e, false
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.vs[r]; ok {
		atomic.AddUint64(&c.hits, 1)
		return e, false
	}
	atomic.AddUint64(&c.misses, 1)
	e := &shaderEntry{handle: c.alloc(), tokens: shader.SynthesizeVS(r)}
	c.vs[r] = e
	return e, true
}

// PixelProgram returns the cached program for a recipe, synthesizing it
// on first use.
func (c *VariantCache) PixelProgram(r shader.PSRecipe) (entry *shaderEntry, created bool) {
	c.mu.RLock()
	if e, ok := c.ps[r]; ok {
		c.mu.RUnlock()
		atomic.AddUint64(&c.hits, 1)
		return e, false
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.ps[r]; ok {
		atomic.AddUint64(&c.hits, 1)
		return e, false
	}
	atomic.AddUint64(&c.misses, 1)
	e := &shaderEntry{handle: c.alloc(), tokens: shader.SynthesizePS(r)}
	c.ps[r] = e
	return e, true
}

// Stats returns the cumulative hit and miss counts.
func (c *VariantCache) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

// Len returns the number of cached vertex and pixel programs.
func (c *VariantCache) Len() (vs, ps int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vs), len(c.ps)
}

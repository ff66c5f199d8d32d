package fvf

import (
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Resolver errors.
var (
	// ErrUnsupportedLayout is returned when an FVF or declaration falls
	// outside the fixed-function subset.
	ErrUnsupportedLayout = errors.New("fvf: unsupported vertex layout")
)

// Resolved pairs a layout with the backend handle its CREATE_INPUT_LAYOUT
// was (or will be) issued under, plus the serialized blob for that packet.
type Resolved struct {
	*InputLayout
	Handle uint32
	Blob   []byte
}

// Resolver caches resolved layouts so each distinct vertex layout is
// created on the backend exactly once per device. Layouts are keyed by
// canonical FVF; declaration blobs resolve through their implied FVF, with
// a blob-hash side index so repeated declarations skip re-matching.
//
// Resolver is safe for concurrent use. It uses RWMutex with double-check
// locking for efficient reads and safe writes.
type Resolver struct {
	// mu protects the maps.
	mu sync.RWMutex

	// byFVF stores resolved layouts indexed by canonical FVF.
	byFVF map[uint32]*Resolved

	// byDeclHash maps a declaration blob hash to its resolved layout.
	byDeclHash map[uint64]*Resolved

	// alloc returns a fresh non-zero backend handle.
	alloc func() uint32

	// hits and misses count cache traffic (atomic for lock-free reads).
	hits   uint64
	misses uint64
}

// NewResolver creates a resolver. alloc must return a fresh non-zero
// handle on each call; the device's handle allocator is the usual source.
func NewResolver(alloc func() uint32) *Resolver {
	return &Resolver{
		byFVF:      make(map[uint32]*Resolved),
		byDeclHash: make(map[uint64]*Resolved),
		alloc:      alloc,
	}
}

// Resolve returns the layout for a packed FVF, building it on first use.
// created reports whether this call built the layout; when true the caller
// must issue CREATE_INPUT_LAYOUT with the handle and blob before any draw
// referencing it.
func (r *Resolver) Resolve(fvfBits uint32) (res *Resolved, created bool, err error) {
	key := CanonicalFVF(fvfBits)
	if key == 0 {
		return nil, false, ErrUnsupportedLayout
	}

	// Fast path: read lock
	r.mu.RLock()
	if res, ok := r.byFVF[key]; ok {
		r.mu.RUnlock()
		atomic.AddUint64(&r.hits, 1)
		return res, false, nil
	}
	r.mu.RUnlock()

	// Slow path: write lock with double-check
	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.byFVF[key]; ok {
		atomic.AddUint64(&r.hits, 1)
		return res, false, nil
	}
	atomic.AddUint64(&r.misses, 1)

	layout := NewLayout(key)
	if layout == nil {
		return nil, false, ErrUnsupportedLayout
	}
	res = &Resolved{
		InputLayout: layout,
		Handle:      r.alloc(),
	}
	res.Blob = layout.Blob()
	r.byFVF[key] = res
	return res, true, nil
}

// ResolveDecl returns the layout for a raw declaration blob, building it
// on first use. Declarations that imply the same canonical FVF share one
// layout and one backend handle.
func (r *Resolver) ResolveDecl(blob []byte) (res *Resolved, created bool, err error) {
	h := fnv.New64a()
	h.Write(blob)
	declKey := h.Sum64()

	r.mu.RLock()
	if res, ok := r.byDeclHash[declKey]; ok {
		r.mu.RUnlock()
		atomic.AddUint64(&r.hits, 1)
		return res, false, nil
	}
	r.mu.RUnlock()

	implied := ImpliedFVF(blob)
	if implied == 0 {
		return nil, false, ErrUnsupportedLayout
	}
	res, created, err = r.Resolve(implied)
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	r.byDeclHash[declKey] = res
	r.mu.Unlock()
	return res, created, nil
}

// Stats returns the cumulative hit and miss counts.
func (r *Resolver) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&r.hits), atomic.LoadUint64(&r.misses)
}

// Len returns the number of distinct layouts resolved so far.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byFVF)
}

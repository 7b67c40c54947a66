// Package cache provides the shared block cache referenced by options.
//
// A Handle is a value. Its zero value is the null cache, a first-class
// "no cache" that can be passed, shared and released exactly like a real
// one. A real cache is reference counted: every Handle obtained through
// NewLRU or Share owns one reference, and the underlying ristretto cache is
// closed when the last reference is released.
package cache

import (
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"
)

const (
	// minCounters bounds ristretto's admission counters from below.
	minCounters = 1 << 10
	// maxCounters bounds them from above so huge capacities stay cheap.
	maxCounters = 1 << 24
	// avgEntrySize is the entry size used to estimate the number of counters.
	avgEntrySize = 256
)

// shared is the reference-counted resource behind non-null handles.
type shared struct {
	rc       *ristretto.Cache
	capacity int64
	refs     atomic.Int64
}

// ref is one owned reference. Copies of a Handle share the same ref, so a
// reference is dropped at most once no matter how many copies release it.
type ref struct {
	s        *shared
	released atomic.Bool
}

// Handle is one reference to a shared cache, or the null cache.
type Handle struct {
	r *ref
}

// Null returns the canonical absent cache.
func Null() Handle {
	return Handle{}
}

// NewLRU creates a cache bounded to capacity bytes and returns the first
// reference to it.
func NewLRU(capacity int64) (Handle, error) {
	if capacity <= 0 {
		return Handle{}, fmt.Errorf("cache: capacity must be positive, got %d", capacity)
	}

	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: counters(capacity),
		MaxCost:     capacity,
		BufferItems: 64,
	})
	if err != nil {
		return Handle{}, fmt.Errorf("cache: create: %w", err)
	}

	s := &shared{rc: rc, capacity: capacity}
	s.refs.Store(1)
	return Handle{r: &ref{s: s}}, nil
}

func counters(capacity int64) int64 {
	n := capacity / avgEntrySize * 10
	if n < minCounters {
		return minCounters
	}
	if n > maxCounters {
		return maxCounters
	}
	return n
}

// IsNull reports whether h is the null cache. A released handle reads as null.
func (h Handle) IsNull() bool {
	return h.live() == nil
}

func (h Handle) live() *shared {
	if h.r == nil || h.r.released.Load() {
		return nil
	}
	return h.r.s
}

// Share returns a new reference to the same cache. Sharing the null cache
// yields the null cache.
func (h Handle) Share() Handle {
	s := h.live()
	if s == nil {
		return Null()
	}
	s.refs.Add(1)
	return Handle{r: &ref{s: s}}
}

// Release drops this handle's reference. It is a no-op for the null cache
// and for a reference that was already released.
func (h Handle) Release() {
	if h.r == nil || !h.r.released.CompareAndSwap(false, true) {
		return
	}
	if h.r.s.refs.Add(-1) == 0 {
		h.r.s.rc.Close()
	}
}

// Same reports whether h and other reference the same underlying cache.
// Two null caches are the same.
func (h Handle) Same(other Handle) bool {
	return h.live() == other.live()
}

// Refs returns the number of live references to the underlying cache,
// or 0 for the null cache.
func (h Handle) Refs() int64 {
	s := h.live()
	if s == nil {
		return 0
	}
	return s.refs.Load()
}

// Capacity returns the cache bound in bytes, or 0 for the null cache.
func (h Handle) Capacity() int64 {
	s := h.live()
	if s == nil {
		return 0
	}
	return s.capacity
}

// Get looks up key. The null cache always misses.
func (h Handle) Get(key []byte) ([]byte, bool) {
	s := h.live()
	if s == nil {
		return nil, false
	}
	v, ok := s.rc.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Set stores a copy of value under key, costed by its length. Admission is
// asynchronous and may be refused; the null cache refuses everything.
func (h Handle) Set(key, value []byte) bool {
	s := h.live()
	if s == nil {
		return false
	}
	v := make([]byte, len(value))
	copy(v, value)
	return s.rc.Set(key, v, int64(len(v)))
}

// Del evicts key.
func (h Handle) Del(key []byte) {
	if s := h.live(); s != nil {
		s.rc.Del(key)
	}
}

// Wait blocks until buffered writes have been applied.
func (h Handle) Wait() {
	if s := h.live(); s != nil {
		s.rc.Wait()
	}
}

// String describes the handle for logs.
func (h Handle) String() string {
	s := h.live()
	if s == nil {
		return "cache(null)"
	}
	return fmt.Sprintf("cache(lru capacity=%d refs=%d)", s.capacity, s.refs.Load())
}

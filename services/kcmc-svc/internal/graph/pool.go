package graph

import (
	"sync"
)

// =============================================================================
// Buffer Pool
// =============================================================================

// BufferPool recycles the per-search integer arrays (predecessors, BFS
// parents) so repeated validations do not allocate a fresh array per POI.
//
// The pool is safe for concurrent use from multiple goroutines.
type BufferPool struct {
	ints sync.Pool
}

var globalPool = &BufferPool{
	ints: sync.Pool{
		New: func() any {
			s := make([]int, 0, 256)
			return &s
		},
	},
}

// GetPool returns the global buffer pool.
func GetPool() *BufferPool {
	return globalPool
}

// AcquireInts obtains a slice of length n with every element set to fill.
// Call ReleaseInts() when done.
func (p *BufferPool) AcquireInts(n, fill int) *[]int {
	s := p.ints.Get().(*[]int)
	if cap(*s) < n {
		*s = make([]int, n)
	} else {
		*s = (*s)[:n]
	}
	for i := range *s {
		(*s)[i] = fill
	}
	return s
}

// ReleaseInts returns a slice to the pool. It is safe to pass nil.
func (p *BufferPool) ReleaseInts(s *[]int) {
	if s == nil {
		return
	}
	*s = (*s)[:0]
	p.ints.Put(s)
}

// Package allocator provides the custom allocator stack backing the event
// loop and TCP core: a page allocator wrapping the OS virtual-memory API, a
// bump allocator over a caller-supplied region, and a slab allocator for
// fixed-size slots built on top of the page allocator.
package allocator

import (
	"fmt"
	"sync/atomic"
)

// cachedPageSize holds the process-wide page size, populated once with a
// relaxed-ordered atomic store and read thereafter with a relaxed load. Zero
// means "not yet resolved".
var cachedPageSize uint64

// PageSize returns the OS page size, a positive power of two. The first call
// resolves it from the platform; subsequent calls hit the cached value.
func PageSize() int {
	if v := atomic.LoadUint64(&cachedPageSize); v != 0 {
		return int(v)
	}

	v := uint64(platformPageSize())
	atomic.StoreUint64(&cachedPageSize, v)

	return int(v)
}

// PageAllocator obtains and returns aligned memory regions from the OS. It
// has no state of its own beyond the cached page size; a zero value is ready
// to use.
type PageAllocator struct{}

// NewPageAllocator returns a ready-to-use page allocator.
func NewPageAllocator() *PageAllocator { return &PageAllocator{} }

// Alloc reserves and commits size bytes, rounded up to a whole number of
// pages, and returns a slice backed by that region. It returns nil when size
// is not positive or when the OS reports memory pressure (ENOMEM /
// out-of-memory); any other failure
// aborts the process, since it indicates a programming error or a corrupted
// environment rather than a recoverable condition.
func (p *PageAllocator) Alloc(size int) []byte {
	if size <= 0 {
		return nil
	}

	rounded := roundUpToPage(size)

	mem, err := platformPageAlloc(rounded)
	if err != nil {
		if isOutOfMemory(err) {
			return nil
		}

		panic(fmt.Sprintf("allocator: page alloc of %d bytes failed: %v", rounded, err))
	}

	return mem
}

// Free returns a region previously obtained from Alloc. mem must be the
// slice Alloc returned, unresliced, since its length is what gets released.
func (p *PageAllocator) Free(mem []byte) {
	if len(mem) == 0 {
		return
	}

	if err := platformPageFree(mem); err != nil {
		panic(fmt.Sprintf("allocator: page free of %d bytes failed: %v", len(mem), err))
	}
}

func roundUpToPage(size int) int {
	ps := PageSize()

	return (size + ps - 1) &^ (ps - 1)
}

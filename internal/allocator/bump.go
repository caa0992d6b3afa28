package allocator

import (
	"unsafe"
)

const wordSize = unsafe.Sizeof(uintptr(0))

// Bump is a non-freeing allocator over a fixed, caller-supplied region.
// Alloc hands out successive sub-slices and advances an offset; Reset
// rewinds the offset to the start in one step. Bump does not own the
// backing region: callers run any finalizers on allocated sub-regions
// before Reset or before releasing the region themselves.
type Bump struct {
	region []byte
	offset int
}

// NewBump initializes a bump allocator over region. The region is not
// copied; Bump borrows it for its lifetime.
func NewBump(region []byte) *Bump {
	return &Bump{region: region}
}

// Alloc rounds n up to a pointer-sized multiple and returns a slice of
// exactly n bytes at the pre-advance offset, or nil if the remaining space
// is insufficient.
func (b *Bump) Alloc(n int) []byte {
	if n < 0 {
		return nil
	}

	aligned := alignUp(n, int(wordSize))
	if b.offset+aligned > len(b.region) {
		return nil
	}

	start := b.offset
	b.offset += aligned

	return b.region[start : start+n : start+aligned]
}

// Reset re-points the offset at the start of the region. It does not zero
// the memory; previously returned slices become invalid for reuse by the
// caller but the bytes themselves are left as-is.
func (b *Bump) Reset() { b.offset = 0 }

// Capacity reports the total size of the backing region.
func (b *Bump) Capacity() int { return len(b.region) }

// Used reports the number of bytes handed out since the last Reset.
func (b *Bump) Used() int { return b.offset }

// Free reports the number of bytes remaining before Alloc starts failing.
func (b *Bump) Free() int { return len(b.region) - b.offset }

func alignUp(n, alignment int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

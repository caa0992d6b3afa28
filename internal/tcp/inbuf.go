package tcp

import (
	"github.com/arrowhead-io/aio/internal/allocator"
	"github.com/arrowhead-io/aio/internal/buf"
)

// InputBuffer is a page-sized detachable receive scratch. Each connection
// owns exactly one until detach transfers ownership to the caller, at
// which point the connection is handed a freshly page-allocated
// replacement.
type InputBuffer struct {
	cursor *buf.Cursor
	region []byte
	pages  *allocator.PageAllocator
}

// newInputBuffer allocates a fresh page-backed buffer from pages.
func newInputBuffer(pages *allocator.PageAllocator) *InputBuffer {
	region := pages.Alloc(allocator.PageSize())
	c := buf.NewWritable(region)

	return &InputBuffer{cursor: c, region: region, pages: pages}
}

// Cursor exposes the buffer's read/write cursor for consuming, peeking,
// or repacking the readable region delivered to on_read.
func (b *InputBuffer) Cursor() *buf.Cursor { return b.cursor }

// Repack moves unread bytes to the start of the region, returning false
// only if the buffer is already full and therefore cannot be compacted
// further — the caller should treat that as overflow.
func (b *InputBuffer) Repack() bool {
	return b.cursor.Repack()
}

// Release returns the buffer's backing page to the allocator. Must be
// called exactly once, typically after a detach.
func (b *InputBuffer) Release() {
	if b.region != nil {
		b.pages.Free(b.region)
		b.region = nil
	}
}

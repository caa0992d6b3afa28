package tcp

import "github.com/arrowhead-io/aio/internal/buf"

// OutputBuffer holds a caller-supplied payload pending transmission. The
// caller allocates it (often via the page allocator) before calling
// Write and frees it when on_write reports the write's completion.
type OutputBuffer struct {
	cursor *buf.Cursor
	conn   *Conn
}

// NewOutputBuffer wraps region as a readable payload ready for Write.
func NewOutputBuffer(region []byte) *OutputBuffer {
	return &OutputBuffer{cursor: buf.NewReadable(region)}
}

// Cursor exposes the buffer's cursor, positioned over the unsent bytes.
func (b *OutputBuffer) Cursor() *buf.Cursor { return b.cursor }

// Conn returns the connection this buffer was submitted to, valid once
// Write has been called.
func (b *OutputBuffer) Conn() *Conn { return b.conn }

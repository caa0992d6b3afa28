// Package buf provides the buffer cursor shared by the TCP input and output
// buffers: a bounds-checked read/write view over a contiguous byte region.
package buf

import (
	"encoding/binary"
	"fmt"
)

// Cursor is a three-pointer view (r, w, e as offsets into region) satisfying
// r <= w <= e. Readable bytes occupy [r, w); writable bytes occupy [w, e).
// Cursor carries no ownership; region is referenced, not copied.
type Cursor struct {
	region []byte
	r, w   int
}

// NewReadable wraps region as fully readable: r=0, w=len(region).
func NewReadable(region []byte) *Cursor {
	return &Cursor{region: region, r: 0, w: len(region)}
}

// NewWritable wraps region as fully writable: r=0, w=0, e=len(region).
func NewWritable(region []byte) *Cursor {
	return &Cursor{region: region, r: 0, w: 0}
}

// Cap returns the size of the backing region.
func (c *Cursor) Cap() int { return len(c.region) }

// Len returns the number of readable bytes, w-r.
func (c *Cursor) Len() int { return c.w - c.r }

// Avail returns the number of writable bytes, e-w (e is the region's end).
func (c *Cursor) Avail() int { return len(c.region) - c.w }

// Readable reports whether at least one byte is available to read.
func (c *Cursor) Readable() bool { return c.Len() > 0 }

// Writable reports whether at least one byte of space remains to write.
func (c *Cursor) Writable() bool { return c.Avail() > 0 }

// Full reports whether the writable region has been exhausted.
func (c *Cursor) Full() bool { return c.w >= len(c.region) }

// ReadSlice returns the readable region [r, w) without copying and without
// advancing r. Callers that consume bytes from it must call Skip.
func (c *Cursor) ReadSlice() []byte { return c.region[c.r:c.w] }

// WriteSlice returns the writable region [w, e) without copying and without
// advancing w. Callers that fill it must call WriteV (the void-advance
// counterpart of Write).
func (c *Cursor) WriteSlice() []byte { return c.region[c.w:] }

// Read copies up to len(dst) readable bytes into dst, advances r by that
// amount, and returns the count copied.
func (c *Cursor) Read(dst []byte) int {
	n := copy(dst, c.region[c.r:c.w])
	c.r += n

	return n
}

// Peek copies up to len(dst) readable bytes into dst without advancing r.
func (c *Cursor) Peek(dst []byte) int {
	return copy(dst, c.region[c.r:c.w])
}

// Skip advances r by n bytes without copying. It returns false and leaves r
// unchanged if n exceeds the readable length.
func (c *Cursor) Skip(n int) bool {
	if n < 0 || c.r+n > c.w {
		return false
	}

	c.r += n

	return true
}

// Write copies src into the writable region and advances w. It returns
// false and leaves the cursor unchanged if src does not fit.
func (c *Cursor) Write(src []byte) bool {
	if len(src) > c.Avail() {
		return false
	}

	copy(c.region[c.w:], src)
	c.w += len(src)

	return true
}

// WriteV advances w by n bytes without touching the underlying memory. It
// is used after filling WriteSlice directly. Returns false if n exceeds the
// writable length.
func (c *Cursor) WriteV(n int) bool {
	if n < 0 || c.w+n > len(c.region) {
		return false
	}

	c.w += n

	return true
}

// Repack moves any unread bytes [r, w) to the start of the region and
// resets r to 0, reclaiming space at the tail for further writes. It
// returns false only if the cursor was already full and repacking would
// not free any space (r was already 0).
func (c *Cursor) Repack() bool {
	if c.r == 0 {
		return !c.Full()
	}

	n := copy(c.region, c.region[c.r:c.w])
	c.r = 0
	c.w = n

	return true
}

// Reset rewinds both r and w to zero, discarding all readable content.
func (c *Cursor) Reset() { c.r, c.w = 0, 0 }

// Region returns the full backing slice; used by callers that need direct
// access, e.g. to free the memory a detached buffer owns.
func (c *Cursor) Region() []byte { return c.region }

// --- byte-order-aware integer codec helpers ---

// ReadUint8 reads one byte, advancing r. ok is false if fewer than 1 byte
// is readable, in which case the cursor is left unchanged.
func (c *Cursor) ReadUint8() (v uint8, ok bool) {
	if c.Len() < 1 {
		return 0, false
	}

	v = c.region[c.r]
	c.r++

	return v, true
}

// WriteUint8 appends one byte, advancing w.
func (c *Cursor) WriteUint8(v uint8) bool {
	if c.Avail() < 1 {
		return false
	}

	c.region[c.w] = v
	c.w++

	return true
}

// ReadUint16BE reads a big-endian 16-bit integer.
func (c *Cursor) ReadUint16BE() (uint16, bool) { return readInt(c, 2, binary.BigEndian.Uint16) }

// ReadUint16LE reads a little-endian 16-bit integer.
func (c *Cursor) ReadUint16LE() (uint16, bool) { return readInt(c, 2, binary.LittleEndian.Uint16) }

// WriteUint16BE writes a big-endian 16-bit integer.
func (c *Cursor) WriteUint16BE(v uint16) bool {
	return writeInt(c, 2, func(b []byte) { binary.BigEndian.PutUint16(b, v) })
}

// WriteUint16LE writes a little-endian 16-bit integer.
func (c *Cursor) WriteUint16LE(v uint16) bool {
	return writeInt(c, 2, func(b []byte) { binary.LittleEndian.PutUint16(b, v) })
}

// ReadUint32BE reads a big-endian 32-bit integer.
func (c *Cursor) ReadUint32BE() (uint32, bool) { return readInt(c, 4, binary.BigEndian.Uint32) }

// ReadUint32LE reads a little-endian 32-bit integer.
func (c *Cursor) ReadUint32LE() (uint32, bool) { return readInt(c, 4, binary.LittleEndian.Uint32) }

// WriteUint32BE writes a big-endian 32-bit integer.
func (c *Cursor) WriteUint32BE(v uint32) bool {
	return writeInt(c, 4, func(b []byte) { binary.BigEndian.PutUint32(b, v) })
}

// WriteUint32LE writes a little-endian 32-bit integer.
func (c *Cursor) WriteUint32LE(v uint32) bool {
	return writeInt(c, 4, func(b []byte) { binary.LittleEndian.PutUint32(b, v) })
}

// ReadUint64BE reads a big-endian 64-bit integer.
func (c *Cursor) ReadUint64BE() (uint64, bool) { return readInt(c, 8, binary.BigEndian.Uint64) }

// ReadUint64LE reads a little-endian 64-bit integer.
func (c *Cursor) ReadUint64LE() (uint64, bool) { return readInt(c, 8, binary.LittleEndian.Uint64) }

// WriteUint64BE writes a big-endian 64-bit integer.
func (c *Cursor) WriteUint64BE(v uint64) bool {
	return writeInt(c, 8, func(b []byte) { binary.BigEndian.PutUint64(b, v) })
}

// WriteUint64LE writes a little-endian 64-bit integer.
func (c *Cursor) WriteUint64LE(v uint64) bool {
	return writeInt(c, 8, func(b []byte) { binary.LittleEndian.PutUint64(b, v) })
}

func readInt[T uint16 | uint32 | uint64](c *Cursor, width int, decode func([]byte) T) (T, bool) {
	if c.Len() < width {
		var zero T

		return zero, false
	}

	v := decode(c.region[c.r : c.r+width])
	c.r += width

	return v, true
}

func writeInt(c *Cursor, width int, encode func([]byte)) bool {
	if c.Avail() < width {
		return false
	}

	encode(c.region[c.w : c.w+width])
	c.w += width

	return true
}

// Appendf appends a printf-style rendering to the writable region, as an
// io.Writer-free convenience for building small protocol messages (e.g.
// status lines) directly into a buffer. It returns false without partial
// writes if the formatted text does not fit.
func (c *Cursor) Appendf(format string, args ...any) bool {
	text := fmt.Sprintf(format, args...)

	return c.Write([]byte(text))
}

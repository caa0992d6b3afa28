package buf

import "testing"

func TestCursorWriteReadRoundTrip(t *testing.T) {
	c := NewWritable(make([]byte, 64))

	if !c.Write([]byte("hello")) {
		t.Fatal("Write failed unexpectedly")
	}

	if c.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", c.Len())
	}

	got := make([]byte, 5)
	if n := c.Read(got); n != 5 || string(got) != "hello" {
		t.Fatalf("Read() = %d,%q, want 5,%q", n, got, "hello")
	}

	if c.Readable() {
		t.Fatal("cursor should be empty after full read")
	}
}

func TestCursorWriteVAdvancesWithoutTouchingMemory(t *testing.T) {
	region := make([]byte, 16)
	c := NewWritable(region)

	copy(c.WriteSlice(), []byte{1, 2, 3})

	if !c.WriteV(3) {
		t.Fatal("WriteV(3) failed")
	}

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	got := make([]byte, 3)
	c.Peek(got)

	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("unexpected bytes after WriteV: %v", got)
	}
}

func TestCursorOverflowLeavesStateUnchanged(t *testing.T) {
	c := NewWritable(make([]byte, 4))

	if c.Write([]byte("toolong")) {
		t.Fatal("Write should fail when payload exceeds capacity")
	}

	if c.Len() != 0 {
		t.Fatalf("Len() = %d after rejected write, want 0", c.Len())
	}
}

func TestCursorRepackMovesUnreadToFront(t *testing.T) {
	c := NewWritable(make([]byte, 8))
	c.Write([]byte("abcd"))

	got := make([]byte, 2)
	c.Read(got) // consume "ab", leaving "cd" unread

	if !c.Repack() {
		t.Fatal("Repack should succeed when r > 0")
	}

	rest := make([]byte, c.Len())
	c.Peek(rest)

	if string(rest) != "cd" {
		t.Fatalf("after Repack, readable = %q, want %q", rest, "cd")
	}

	if c.Avail() != 6 {
		t.Fatalf("Avail() after Repack = %d, want 6", c.Avail())
	}
}

func TestCursorIntegerRoundTrip(t *testing.T) {
	type widthCase struct {
		name  string
		want  uint64
		write func(c *Cursor) bool
		read  func(c *Cursor) (uint64, bool)
	}

	cases := []widthCase{
		{"u16be", 0xBEEF, func(c *Cursor) bool { return c.WriteUint16BE(0xBEEF) }, func(c *Cursor) (uint64, bool) { v, ok := c.ReadUint16BE(); return uint64(v), ok }},
		{"u16le", 0xBEEF, func(c *Cursor) bool { return c.WriteUint16LE(0xBEEF) }, func(c *Cursor) (uint64, bool) { v, ok := c.ReadUint16LE(); return uint64(v), ok }},
		{"u32be", 0xDEADBEEF, func(c *Cursor) bool { return c.WriteUint32BE(0xDEADBEEF) }, func(c *Cursor) (uint64, bool) { v, ok := c.ReadUint32BE(); return uint64(v), ok }},
		{"u32le", 0xDEADBEEF, func(c *Cursor) bool { return c.WriteUint32LE(0xDEADBEEF) }, func(c *Cursor) (uint64, bool) { v, ok := c.ReadUint32LE(); return uint64(v), ok }},
		{"u64be", 0x0102030405060708, func(c *Cursor) bool { return c.WriteUint64BE(0x0102030405060708) }, func(c *Cursor) (uint64, bool) { return c.ReadUint64BE() }},
		{"u64le", 0x0102030405060708, func(c *Cursor) bool { return c.WriteUint64LE(0x0102030405060708) }, func(c *Cursor) (uint64, bool) { return c.ReadUint64LE() }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewWritable(make([]byte, 16))

			if !tc.write(c) {
				t.Fatal("write failed")
			}

			got, ok := tc.read(c)
			if !ok {
				t.Fatal("read failed")
			}

			if c.Readable() {
				t.Fatal("bytes remaining after round trip")
			}

			if got != tc.want {
				t.Fatalf("round trip = %#x, want %#x", got, tc.want)
			}
		})
	}
}

func TestCursorReadUnderflowDoesNotAdvance(t *testing.T) {
	c := NewWritable(make([]byte, 16))
	c.WriteUint8(0x42)

	if _, ok := c.ReadUint32BE(); ok {
		t.Fatal("ReadUint32BE should fail with only 1 byte readable")
	}

	v, ok := c.ReadUint8()
	if !ok || v != 0x42 {
		t.Fatalf("ReadUint8 = %v,%v, want 0x42,true", v, ok)
	}
}

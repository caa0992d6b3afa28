package allocator

import (
	"testing"
	"unsafe"
)

func TestBumpAllocDisjointAndAligned(t *testing.T) {
	region := make([]byte, 256)
	b := NewBump(region)

	sizes := []int{1, 7, 16, 3, 40}

	var ranges [][2]uintptr

	for _, sz := range sizes {
		got := b.Alloc(sz)
		if got == nil {
			t.Fatalf("Alloc(%d) returned nil with room left", sz)
		}

		if len(got) != sz {
			t.Fatalf("Alloc(%d) returned slice of length %d", sz, len(got))
		}

		base := uintptr(unsafe.Pointer(&got[0]))
		if base%wordSize != 0 {
			t.Fatalf("Alloc(%d) returned unaligned pointer %x", sz, base)
		}

		ranges = append(ranges, [2]uintptr{base, base + uintptr(sz)})
	}

	for i := range ranges {
		for j := range ranges {
			if i == j {
				continue
			}

			if ranges[i][0] < ranges[j][1] && ranges[j][0] < ranges[i][1] {
				t.Fatalf("allocations %d and %d overlap: %v vs %v", i, j, ranges[i], ranges[j])
			}
		}
	}
}

func TestBumpAllocExhaustion(t *testing.T) {
	region := make([]byte, 16)
	b := NewBump(region)

	if got := b.Alloc(16); got == nil {
		t.Fatal("Alloc(16) over a 16-byte region should succeed")
	}

	if got := b.Alloc(1); got != nil {
		t.Fatal("Alloc after exhaustion should return nil")
	}
}

func TestBumpResetReturnsToBase(t *testing.T) {
	region := make([]byte, 64)
	b := NewBump(region)

	first := b.Alloc(8)
	baseAddr := uintptr(unsafe.Pointer(&first[0]))

	b.Alloc(8)
	b.Reset()

	if b.Used() != 0 {
		t.Fatalf("Used() after Reset = %d, want 0", b.Used())
	}

	second := b.Alloc(8)
	if uintptr(unsafe.Pointer(&second[0])) != baseAddr {
		t.Fatal("first Alloc after Reset did not return to region base")
	}
}

func TestBumpCapacityUsedFree(t *testing.T) {
	region := make([]byte, 32)
	b := NewBump(region)

	if b.Capacity() != 32 {
		t.Fatalf("Capacity() = %d, want 32", b.Capacity())
	}

	b.Alloc(9)

	wantUsed := alignUp(9, int(wordSize))
	if b.Used() != wantUsed {
		t.Fatalf("Used() = %d, want %d", b.Used(), wantUsed)
	}

	if b.Free() != 32-wantUsed {
		t.Fatalf("Free() = %d, want %d", b.Free(), 32-wantUsed)
	}
}

package allocator

import "testing"

func TestPageSizeIsPowerOfTwo(t *testing.T) {
	ps := PageSize()
	if ps <= 0 {
		t.Fatalf("PageSize returned non-positive value %d", ps)
	}

	if ps&(ps-1) != 0 {
		t.Fatalf("PageSize %d is not a power of two", ps)
	}

	if got := PageSize(); got != ps {
		t.Fatalf("PageSize not stable across calls: %d vs %d", ps, got)
	}
}

func TestPageAllocRoundTrip(t *testing.T) {
	pa := NewPageAllocator()

	mem := pa.Alloc(1)
	if mem == nil {
		t.Fatal("Alloc(1) returned nil")
	}

	if len(mem) != PageSize() {
		t.Fatalf("Alloc(1) returned %d bytes, want a full page (%d)", len(mem), PageSize())
	}

	for i := range mem {
		mem[i] = byte(i)
	}

	for i := range mem {
		if mem[i] != byte(i) {
			t.Fatalf("page memory not writable at offset %d", i)
		}
	}

	pa.Free(mem)
}

func TestPageAllocRoundsUpToPageMultiple(t *testing.T) {
	pa := NewPageAllocator()
	ps := PageSize()

	mem := pa.Alloc(ps + 1)
	if len(mem) != 2*ps {
		t.Fatalf("Alloc(%d) returned %d bytes, want %d", ps+1, len(mem), 2*ps)
	}

	pa.Free(mem)
}

func TestPageAllocZeroSize(t *testing.T) {
	pa := NewPageAllocator()

	if mem := pa.Alloc(0); mem != nil {
		t.Fatalf("Alloc(0) should return nil, got %d bytes", len(mem))
	}
}

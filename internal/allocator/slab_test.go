package allocator

import (
	"testing"
	"unsafe"
)

func TestSlabAllocFreeReuse(t *testing.T) {
	s := NewSlab(NewPageAllocator(), 64)

	p := s.Alloc()
	if p == nil {
		t.Fatal("Alloc returned nil")
	}

	s.Free(p)

	p2 := s.Alloc()
	if p2 != p {
		t.Fatalf("Alloc after Free returned %p, want reused %p", p2, p)
	}
}

func TestSlabAllocDoesNotCorruptOtherSlots(t *testing.T) {
	s := NewSlab(NewPageAllocator(), 32)

	const n = 8

	ptrs := make([]unsafe.Pointer, n)
	for i := range ptrs {
		ptrs[i] = s.Alloc()
		if ptrs[i] == nil {
			t.Fatalf("Alloc #%d returned nil", i)
		}

		buf := unsafe.Slice((*byte)(ptrs[i]), 32)
		for j := range buf {
			buf[j] = byte(i + 1)
		}
	}

	for i := range ptrs {
		buf := unsafe.Slice((*byte)(ptrs[i]), 32)
		for j := range buf {
			if buf[j] != byte(i+1) {
				t.Fatalf("slot %d corrupted at byte %d: got %d", i, j, buf[j])
			}
		}
	}
}

func TestSlabRefillAddsExactlyOneBank(t *testing.T) {
	s := NewSlab(NewPageAllocator(), 64)

	perBank := PageSize() / s.SlotSize()

	for i := 0; i < perBank; i++ {
		if s.Alloc() == nil {
			t.Fatalf("Alloc #%d unexpectedly failed within first bank", i)
		}
	}

	if len(s.banks) != 1 {
		t.Fatalf("banks after filling one bank = %d, want 1", len(s.banks))
	}

	extra := s.Alloc()
	if extra == nil {
		t.Fatal("Alloc beyond first bank should trigger a refill, not fail")
	}

	if len(s.banks) != 2 {
		t.Fatalf("banks after one extra Alloc = %d, want 2", len(s.banks))
	}
}

func TestSlabTermVisitsEachLiveSlotOnce(t *testing.T) {
	s := NewSlab(NewPageAllocator(), 16)

	const live = 5

	ptrs := make([]unsafe.Pointer, live)
	for i := range ptrs {
		ptrs[i] = s.Alloc()
	}

	// Free one ahead of time; Term must not visit it.
	s.Free(ptrs[0])

	visited := make(map[unsafe.Pointer]int)
	s.Term(func(p unsafe.Pointer) {
		visited[p]++
		// A visitor is allowed to free other live slots; this must not
		// cause them to be visited twice.
		for _, other := range ptrs[1:] {
			if other != p {
				s.Free(other)
			}
		}
	})

	for i, p := range ptrs {
		if i == 0 {
			if visited[p] != 0 {
				t.Fatalf("pre-freed slot %d was visited", i)
			}

			continue
		}

		if visited[p] > 1 {
			t.Fatalf("slot %d visited %d times, want at most 1", i, visited[p])
		}
	}
}

func TestSlabFreeUnknownPointerIsNoop(t *testing.T) {
	s := NewSlab(NewPageAllocator(), 32)

	var stray [32]byte

	s.Free(unsafe.Pointer(&stray[0])) // must not panic

	p := s.Alloc()
	if p == nil {
		t.Fatal("Alloc after no-op Free failed")
	}
}

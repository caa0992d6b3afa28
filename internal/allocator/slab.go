package allocator

import "unsafe"

type slabBank struct {
	mem  []byte
	used []bool
}

// Slab is a free-list allocator for fixed-size slots backed by page-sized
// banks. It backs the listener's per-acceptance connection slots. The
// loop's event records and the TCP input buffers do not come from a Slab:
// records use the loop's own record pool, and each input buffer is a
// whole page taken directly from PageAllocator.
//
// Unlike a C slab which threads its free list through the slot memory
// itself, Slab tracks occupancy in a side bitmap per bank. That keeps slot
// memory free of allocator-owned pointers, which matters in a garbage
// collected language where a raw pointer hidden inside a byte slice is
// invisible to the collector.
type Slab struct {
	pages    *PageAllocator
	slotSize int
	banks    []*slabBank
	free     []slotRef
}

type slotRef struct {
	bank int
	slot int
}

// NewSlab creates a slab allocator for slots of slotSize bytes, rounded up
// to a pointer-sized multiple. Banks are requested from pages lazily, one
// page at a time, as Alloc exhausts the free list.
func NewSlab(pages *PageAllocator, slotSize int) *Slab {
	if slotSize <= 0 {
		slotSize = int(wordSize)
	}

	return &Slab{
		pages:    pages,
		slotSize: alignUp(slotSize, int(wordSize)),
	}
}

// SlotSize returns the effective, pointer-aligned slot size.
func (s *Slab) SlotSize() int { return s.slotSize }

// Alloc pops a slot off the free list, growing the slab by one bank first
// if the free list is empty. It returns nil only if the page allocator
// itself reports memory pressure.
func (s *Slab) Alloc() unsafe.Pointer {
	if len(s.free) == 0 && !s.grow() {
		return nil
	}

	n := len(s.free)
	ref := s.free[n-1]
	s.free = s.free[:n-1]

	b := s.banks[ref.bank]
	b.used[ref.slot] = true

	return s.slotPtr(b, ref.slot)
}

// Free returns a slot to the free list. Freeing a pointer that was not
// currently allocated (already free, or unknown to this slab) is a no-op,
// which makes Free safe to call from a Term visitor on slots other than
// the one currently being visited.
func (s *Slab) Free(ptr unsafe.Pointer) {
	bi, si, ok := s.locate(ptr)
	if !ok {
		return
	}

	b := s.banks[bi]
	if !b.used[si] {
		return
	}

	b.used[si] = false
	s.free = append(s.free, slotRef{bank: bi, slot: si})
}

// Term walks every bank and, for each slot still marked allocated, invokes
// visit exactly once (if non-nil) before releasing all banks back to the
// page allocator. Slots are marked free immediately before the visitor
// runs, so a visitor that calls Free on the slot being visited, or on any
// other live slot, cannot cause a slot to be visited twice.
func (s *Slab) Term(visit func(unsafe.Pointer)) {
	for _, b := range s.banks {
		for si := range b.used {
			if !b.used[si] {
				continue
			}

			b.used[si] = false

			if visit != nil {
				visit(s.slotPtr(b, si))
			}
		}
	}

	for _, b := range s.banks {
		s.pages.Free(b.mem)
	}

	s.banks = nil
	s.free = nil
}

func (s *Slab) grow() bool {
	mem := s.pages.Alloc(PageSize())
	if mem == nil {
		return false
	}

	perBank := len(mem) / s.slotSize
	if perBank == 0 {
		s.pages.Free(mem)

		return false
	}

	b := &slabBank{mem: mem, used: make([]bool, perBank)}
	s.banks = append(s.banks, b)

	bi := len(s.banks) - 1
	for i := perBank - 1; i >= 0; i-- {
		s.free = append(s.free, slotRef{bank: bi, slot: i})
	}

	return true
}

func (s *Slab) locate(ptr unsafe.Pointer) (bankIdx, slotIdx int, ok bool) {
	addr := uintptr(ptr)

	for bi, b := range s.banks {
		if len(b.mem) == 0 {
			continue
		}

		base := uintptr(unsafe.Pointer(&b.mem[0]))
		end := base + uintptr(len(b.mem))

		if addr >= base && addr < end {
			return bi, int(addr-base) / s.slotSize, true
		}
	}

	return 0, 0, false
}

func (s *Slab) slotPtr(b *slabBank, slot int) unsafe.Pointer {
	return unsafe.Pointer(&b.mem[slot*s.slotSize])
}

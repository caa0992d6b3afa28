package loop

// recordPool hands out *EventRecord values with the same alloc/free/grow
// discipline as the slab allocator in internal/allocator: a free list
// drawn down by alloc, refilled in fixed-size batches when exhausted.
// It holds plain Go-managed memory rather than a page-backed byte arena,
// because EventRecord carries GC-visible pointers (its callback closure
// and Subject interface) that cannot safely live in memory the garbage
// collector does not scan; internal/allocator.Slab is used only for the
// listener's connection slots, which hold no Go pointers.
type recordPool struct {
	freeList []*EventRecord
	banks    [][]EventRecord
}

// growSize mirrors one page's worth of slots at a plausible EventRecord
// size, matching the slab's bank-sizing intent without importing the
// byte-level page allocator for garbage-collected memory.
const growSize = 64

func (p *recordPool) alloc() *EventRecord {
	if len(p.freeList) == 0 {
		p.grow()
	}

	n := len(p.freeList)
	rec := p.freeList[n-1]
	p.freeList = p.freeList[:n-1]

	return rec
}

func (p *recordPool) free(rec *EventRecord) {
	p.freeList = append(p.freeList, rec)
}

func (p *recordPool) grow() {
	bank := make([]EventRecord, growSize)
	p.banks = append(p.banks, bank)

	for i := range bank {
		p.freeList = append(p.freeList, &bank[i])
	}
}

package loop

import (
	"container/heap"

	"github.com/arrowhead-io/aio/internal/clock"
)

// Timer is a handle to a scheduled timer task. Cancel prevents the
// callback from firing if it has not already run.
type Timer struct {
	seq      uint64
	deadline clock.Time
	callback func()
	canceled bool
	index    int // position in the heap, maintained by container/heap
}

// Cancel prevents the timer's callback from running. Safe to call after
// the timer has already fired or been canceled.
func (t *Timer) Cancel() {
	if t != nil {
		t.canceled = true
	}
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline == h[j].deadline {
		return h[i].seq < h[j].seq
	}

	return h[i].deadline < h[j].deadline
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]

	return t
}

// timerQueue wraps the heap with insertion-order sequencing so that ties on
// deadline break in scheduling order, and with lazy deletion for canceled
// timers so Cancel stays O(1) and does not require restructuring the heap.
type timerQueue struct {
	h       timerHeap
	nextSeq uint64
}

func (q *timerQueue) schedule(deadline clock.Time, cb func()) *Timer {
	t := &Timer{seq: q.nextSeq, deadline: deadline, callback: cb}
	q.nextSeq++
	heap.Push(&q.h, t)

	return t
}

func (q *timerQueue) peekDeadline() (clock.Time, bool) {
	for len(q.h) > 0 {
		if q.h[0].canceled {
			heap.Pop(&q.h)

			continue
		}

		return q.h[0].deadline, true
	}

	return 0, false
}

// popExpired pops and returns all non-canceled timers whose deadline is
// ≤ now, in deadline order (ties broken by insertion order).
func (q *timerQueue) popExpired(now clock.Time) []*Timer {
	var expired []*Timer

	for len(q.h) > 0 && (q.h[0].canceled || q.h[0].deadline <= now) {
		t := heap.Pop(&q.h).(*Timer)
		if t.canceled {
			continue
		}

		expired = append(expired, t)
	}

	return expired
}

func (q *timerQueue) len() int { return len(q.h) }

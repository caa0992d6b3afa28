package loop

import (
	"testing"

	"github.com/arrowhead-io/aio/internal/clock"
)

func TestTimerQueueFiresInDeadlineOrder(t *testing.T) {
	var q timerQueue

	var order []string

	q.schedule(clock.Time(10), func() { order = append(order, "second") })
	q.schedule(clock.Time(5), func() { order = append(order, "first") })

	for _, timer := range q.popExpired(clock.Time(100)) {
		timer.callback()
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v, want [first second]", order)
	}
}

func TestTimerQueueTieBreaksByInsertionOrder(t *testing.T) {
	var q timerQueue

	var order []int

	for i := 0; i < 3; i++ {
		i := i
		q.schedule(clock.Time(0), func() { order = append(order, i) })
	}

	for _, timer := range q.popExpired(clock.Time(0)) {
		timer.callback()
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want [0 1 2]", order)
		}
	}
}

func TestTimerCancelSuppressesCallback(t *testing.T) {
	var q timerQueue

	fired := false
	timer := q.schedule(clock.Time(5), func() { fired = true })
	timer.Cancel()

	expired := q.popExpired(clock.Time(10))
	for _, t := range expired {
		t.callback()
	}

	if fired {
		t.Fatal("canceled timer fired")
	}
}

func TestTimerQueuePeekDeadlineSkipsCanceled(t *testing.T) {
	var q timerQueue

	t1 := q.schedule(clock.Time(5), func() {})
	q.schedule(clock.Time(10), func() {})
	t1.Cancel()

	deadline, ok := q.peekDeadline()
	if !ok || deadline != clock.Time(10) {
		t.Fatalf("peekDeadline() = (%v, %v), want (10, true)", deadline, ok)
	}
}

package loop

import (
	"testing"
	"time"

	"github.com/arrowhead-io/aio/internal/errkind"
)

// fakeBackend lets tests drive poll() results deterministically without a
// real OS multiplexer.
type fakeBackend struct {
	queued []fakeCompletion
	closed bool
}

type fakeCompletion struct {
	rec *EventRecord
	c   Completion
}

func (b *fakeBackend) poll(budgetNanos int64, out []*EventRecord, completions []Completion) (int, error) {
	n := 0

	for n < len(out) && n < len(b.queued) {
		out[n] = b.queued[n].rec
		completions[n] = b.queued[n].c
		n++
	}

	b.queued = b.queued[n:]

	return n, nil
}

func (b *fakeBackend) close() error {
	b.closed = true

	return nil
}

func TestLoopDispatchesQueuedCompletion(t *testing.T) {
	be := &fakeBackend{}
	l := newWithBackend(be)

	var got Completion

	rec, _ := l.Submit("subject", func(_ *EventRecord, c Completion) {
		got = c
		l.Stop()
	})
	be.queued = append(be.queued, fakeCompletion{rec: rec, c: Completion{Res: 42}})

	l.state = Running

	if err := l.RunUntil(false, 0); err != nil {
		t.Fatalf("RunUntil returned %v", err)
	}

	if got.Res != 42 {
		t.Fatalf("callback got Res=%d, want 42", got.Res)
	}
}

func TestLoopTimerFiresBeforeDeadline(t *testing.T) {
	be := &fakeBackend{}
	l := newWithBackend(be)

	fired := false
	l.After(time.Millisecond, func() { fired = true })

	deadline := l.Now().Add(10 * time.Millisecond)

	l.state = Running

	if err := l.RunUntil(true, deadline); err != nil {
		t.Fatalf("RunUntil returned %v", err)
	}

	if !fired {
		t.Fatal("timer callback did not fire before deadline")
	}
}

func TestLoopTwoTimersFireInDeadlineOrder(t *testing.T) {
	be := &fakeBackend{}
	l := newWithBackend(be)

	var order []string

	l.After(10*time.Millisecond, func() { order = append(order, "t10") })
	l.After(5*time.Millisecond, func() { order = append(order, "t5") })

	l.state = Running

	deadline := l.Now().Add(20 * time.Millisecond)
	if err := l.RunUntil(true, deadline); err != nil {
		t.Fatalf("RunUntil returned %v", err)
	}

	if len(order) != 2 || order[0] != "t5" || order[1] != "t10" {
		t.Fatalf("order = %v, want [t5 t10]", order)
	}
}

func TestLoopTerminateCancelsOutstandingRecords(t *testing.T) {
	be := &fakeBackend{}
	l := newWithBackend(be)

	var kind errkind.Kind

	l.Submit("pending-op", func(_ *EventRecord, c Completion) {
		kind = errkind.Of(c.Err)
	})

	if err := l.Terminate(); err != nil {
		t.Fatalf("Terminate() = %v", err)
	}

	if kind != errkind.Cancelled {
		t.Fatalf("kind = %v, want Cancelled", kind)
	}

	if l.State() != Terminated {
		t.Fatalf("State() = %v, want Terminated", l.State())
	}

	if !be.closed {
		t.Fatal("backend was not closed on terminate")
	}
}

func TestLoopTerminateFromCallbackIsDeferred(t *testing.T) {
	be := &fakeBackend{}
	l := newWithBackend(be)

	terminateCalled := false

	rec, _ := l.Submit("op", func(_ *EventRecord, _ Completion) {
		terminateCalled = true

		if err := l.Terminate(); err != nil {
			t.Fatalf("Terminate() inside callback = %v", err)
		}

		if l.State() == Terminated {
			t.Fatal("terminate ran synchronously from inside a callback")
		}
	})
	be.queued = append(be.queued, fakeCompletion{rec: rec, c: Completion{}})

	l.state = Running

	if err := l.RunUntil(false, 0); err != nil {
		t.Fatalf("RunUntil returned %v", err)
	}

	if !terminateCalled {
		t.Fatal("callback never ran")
	}

	if l.State() != Terminated {
		t.Fatalf("State() after RunUntil = %v, want Terminated", l.State())
	}
}

package loop

import "github.com/arrowhead-io/aio/internal/errkind"

// Completion is the portable shape of a single backend-delivered
// completion: a result code folded to the error taxonomy, a raw byte
// count or result value, and backend-specific flags (e.g. io_uring's
// CQE flags).
type Completion struct {
	Err   *errkind.Error
	Res   int32
	Flags uint32
}

// Callback is invoked when the record's completion arrives, or with a
// cancelled error during loop termination.
type Callback func(rec *EventRecord, c Completion)

// EventRecord links a single outstanding operation to its callback and
// to the object that issued it. It is allocated from the loop's slab
// when an operation is submitted and returned to the slab after the
// callback runs, unless the callback re-arms it for a chained op.
type EventRecord struct {
	loop     *Loop
	callback Callback
	Subject  any // the connection, listener, or other owner of this op
	userData uint64
	armed    bool
}

// Rearm keeps the record out of the slab-return path after its callback
// runs, for multishot-style operations (e.g. multishot accept/recv)
// that reuse one record across many completions.
func (r *EventRecord) Rearm() { r.armed = true }

// backend abstracts the three platform multiplexers behind one contract:
// wait for completions and release OS resources. Submission goes through
// the platform-specific Submitter or Registrar interfaces instead.
type backend interface {
	// poll retrieves up to len(out) ready completions without blocking
	// past budget (zero means return immediately, negative means wait
	// indefinitely). It returns the number of records filled into out
	// alongside their matching completions.
	poll(budgetNanos int64, out []*EventRecord, completions []Completion) (int, error)

	// close releases the backend's OS resources. Called once, during
	// loop termination.
	close() error
}

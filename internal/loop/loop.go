// Package loop implements the single-threaded, cooperative event loop:
// one OS multiplexer per loop, a min-heap of timers, and a pool of event
// records handed out to submitted operations and returned after their
// completion callback runs.
package loop

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/arrowhead-io/aio/internal/clock"
	"github.com/arrowhead-io/aio/internal/errkind"
)

// State is the loop's lifecycle state. Transitions are monotone except
// for the running↔stopped cycle.
type State int

const (
	Initial State = iota
	Running
	Stopping
	Stopped
	Terminating
	Terminated
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	case Terminating:
		return "terminating"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// batchSize is the maximum number of completions retrieved from the
// backend per iteration.
const batchSize = 32

// Loop owns the backend multiplexer, the timer queue, and the pool of
// event records submitted operations are allocated from.
type Loop struct {
	state State
	now   clock.Time
	be    backend
	log   hclog.Logger

	timers timerQueue

	records  recordPool
	userData uint64
	byUser   map[uint64]*EventRecord

	pendingTerminate bool
	inCallback       bool
	lastErr          error
}

// Option configures a Loop at construction time.
type Option func(*Loop)

// WithLogger overrides the loop's structured logger. The default is a
// no-op logger so library use does not force a logging dependency on
// callers that do not configure one.
func WithLogger(l hclog.Logger) Option {
	return func(lp *Loop) { lp.log = l }
}

// New constructs a Loop bound to the platform-default backend.
func New(opts ...Option) (*Loop, error) {
	be, err := newBackend()
	if err != nil {
		return nil, err
	}

	lp := &Loop{
		state:  Initial,
		now:    clock.Now(),
		be:     be,
		log:    hclog.NewNullLogger(),
		byUser: make(map[uint64]*EventRecord),
	}

	for _, opt := range opts {
		opt(lp)
	}

	return lp, nil
}

// newWithBackend builds a Loop around an explicit backend, bypassing the
// platform-default constructor. Used by tests to exercise the loop's
// scheduling and cancellation logic against a fake backend.
func newWithBackend(be backend) *Loop {
	return &Loop{
		state:  Initial,
		now:    clock.Now(),
		be:     be,
		log:    hclog.NewNullLogger(),
		byUser: make(map[uint64]*EventRecord),
	}
}

// State returns the loop's current lifecycle state.
func (l *Loop) State() State { return l.state }

// Registrar exposes readiness-based registration for the kqueue and
// WSAPoll backends. Default TCP transports on those platforms obtain
// this via Loop.Backend() and a type assertion, since the loop's own
// backend field is not otherwise reachable outside the package.
type Registrar interface {
	RegisterRead(fd uintptr, rec *EventRecord, persist bool, perform func() (int32, error)) error
	RegisterWrite(fd uintptr, rec *EventRecord, persist bool, perform func() (int32, error)) error
	Deregister(fd uintptr)
}

// Backend returns the loop's platform backend as an opaque value. Callers
// type-assert to Registrar (kqueue/WSAPoll) or Submitter (io_uring)
// depending on platform.
func (l *Loop) Backend() any { return l.be }

// Now returns the cached current time, refreshed once per iteration.
func (l *Loop) Now() clock.Time { return l.now }

// Submit allocates an event record from the loop's pool, associates it
// with subject and cb, and returns it along with the opaque user-data
// token backends use as completion correlation.
func (l *Loop) Submit(subject any, cb Callback) (*EventRecord, uint64) {
	rec := l.records.alloc()
	rec.loop = l
	rec.Subject = subject
	rec.callback = cb
	rec.armed = false

	l.userData++
	token := l.userData
	rec.userData = token
	l.byUser[token] = rec

	return rec, token
}

// ScheduleTimer arms a callback to run once now has advanced past
// deadline.
func (l *Loop) ScheduleTimer(deadline clock.Time, cb func()) *Timer {
	return l.timers.schedule(deadline, cb)
}

// After is a convenience wrapper scheduling cb at l.Now()+d.
func (l *Loop) After(d time.Duration, cb func()) *Timer {
	return l.ScheduleTimer(l.now.Add(d), cb)
}

// Stop requests that RunUntil return after completing the current
// iteration, without cancelling outstanding operations.
func (l *Loop) Stop() {
	if l.state == Running {
		l.state = Stopping
	}
}

// Terminate cancels every outstanding event record with a cancelled
// error and releases the backend. If called from inside a callback the
// termination is deferred until the current iteration finishes, per
// the loop's cancellation semantics; otherwise it happens synchronously.
func (l *Loop) Terminate() error {
	if l.inCallback {
		l.pendingTerminate = true

		return nil
	}

	return l.terminateNow()
}

func (l *Loop) terminateNow() error {
	l.state = Terminating

	cancelled := errkind.New("loop.terminate", errkind.Cancelled)
	for token, rec := range l.byUser {
		delete(l.byUser, token)
		cb := rec.callback
		rec.callback = nil
		l.records.free(rec)

		if cb != nil {
			cb(rec, Completion{Err: cancelled})
		}
	}

	l.timers = timerQueue{}

	err := l.be.close()
	l.state = Terminated

	return err
}

// RunUntil drives the loop through iterations until either the state
// stops being Running or the supplied deadline (if hasDeadline) is
// reached. It implements the loop's core algorithm: refresh the clock,
// compute a wait budget, poll the backend, dispatch completions, then
// run expired timers.
func (l *Loop) RunUntil(hasDeadline bool, deadline clock.Time) error {
	if l.state == Initial || l.state == Stopped {
		l.state = Running
	}

	records := make([]*EventRecord, batchSize)
	completions := make([]Completion, batchSize)

	for l.state == Running {
		l.now = clock.Now()

		budget := l.waitBudget(hasDeadline, deadline)

		n, err := l.be.poll(budget, records, completions)
		if err != nil {
			l.lastErr = err
		}

		l.now = clock.Now()

		l.inCallback = true

		for i := 0; i < n; i++ {
			rec := records[i]
			if rec == nil {
				continue
			}

			if cb := rec.callback; cb != nil {
				cb(rec, completions[i])
			}

			if !rec.armed {
				delete(l.byUser, rec.userData)
				rec.callback = nil
				l.records.free(rec)
			}
		}

		for _, t := range l.timers.popExpired(l.now) {
			t.callback()
		}

		l.inCallback = false

		if l.pendingTerminate {
			l.pendingTerminate = false

			return l.terminateNow()
		}

		if hasDeadline && l.now >= deadline {
			break
		}
	}

	if l.state == Stopping {
		l.state = Stopped
	}

	return l.lastErr
}

// waitBudget computes the nanosecond budget for the next backend poll:
// the minimum of time-to-deadline and time-to-next-timer, clamped to
// zero, or -1 to signal an indefinite wait when neither exists.
func (l *Loop) waitBudget(hasDeadline bool, deadline clock.Time) int64 {
	const noWait = int64(-1)

	budget := noWait

	if hasDeadline {
		budget = int64(deadline.Sub(l.now))
		if budget < 0 {
			budget = 0
		}
	}

	if next, ok := l.timers.peekDeadline(); ok {
		untilTimer := int64(next.Sub(l.now))
		if untilTimer < 0 {
			untilTimer = 0
		}

		if budget == noWait || untilTimer < budget {
			budget = untilTimer
		}
	}

	return budget
}

//go:build darwin || freebsd || netbsd || openbsd

package loop

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/arrowhead-io/aio/internal/errkind"
)

// kqueueBackend translates kqueue readiness notifications into synthetic
// completions: when a registered fd becomes readable or writable, the
// backend performs the caller's nonblocking syscall synchronously on the
// loop thread and reports its result as a Completion, mirroring the
// one-record-per-completion contract io_uring delivers natively.
//
// Grounded on the teacher's kqueuePoller (kqueue_poller_bsd.go), adapted
// from net.Conn-keyed registration to raw-fd-keyed registration with a
// pluggable "perform" closure per registration instead of a fixed
// readable/writable event.
type kqueueBackend struct {
	kq   int
	regs map[int]*kqueueReg
}

type kqueueReg struct {
	fd      int
	filter  int16
	rec     *EventRecord
	perform func() (n int32, err error)
	persist bool
}

func newBackend() (backend, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, errkind.FromErrno("loop.kqueue", err.(unix.Errno))
	}

	return &kqueueBackend{kq: fd, regs: make(map[int]*kqueueReg)}, nil
}

// RegisterRead arms fd for read readiness. When it fires, perform is
// invoked synchronously and its result reported against rec. Implements
// Registrar.
func (b *kqueueBackend) RegisterRead(fd uintptr, rec *EventRecord, persist bool, perform func() (int32, error)) error {
	return b.register(int(fd), unix.EVFILT_READ, rec, persist, perform)
}

// RegisterWrite arms fd for write readiness. Implements Registrar.
func (b *kqueueBackend) RegisterWrite(fd uintptr, rec *EventRecord, persist bool, perform func() (int32, error)) error {
	return b.register(int(fd), unix.EVFILT_WRITE, rec, persist, perform)
}

// Deregister removes both filters for fd, if armed. Implements Registrar.
func (b *kqueueBackend) Deregister(fd uintptr) {
	b.deregisterFilter(int(fd), unix.EVFILT_READ)
	b.deregisterFilter(int(fd), unix.EVFILT_WRITE)
}

func (b *kqueueBackend) register(fd int, filter int16, rec *EventRecord, persist bool, perform func() (int32, error)) error {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: filter, Flags: unix.EV_ADD | unix.EV_ENABLE}
	if _, err := unix.Kevent(b.kq, []unix.Kevent_t{ev}, nil, nil); err != nil {
		return errkind.FromErrno("loop.kevent.add", err.(unix.Errno))
	}

	b.regs[regKey(fd, filter)] = &kqueueReg{fd: fd, filter: filter, rec: rec, perform: perform, persist: persist}

	return nil
}

func (b *kqueueBackend) deregisterFilter(fd int, filter int16) {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: filter, Flags: unix.EV_DELETE}
	_, _ = unix.Kevent(b.kq, []unix.Kevent_t{ev}, nil, nil)
	delete(b.regs, regKey(fd, filter))
}

// regKey packs fd and filter into one map key since a single fd may be
// registered for both read and write filters simultaneously.
func regKey(fd int, filter int16) int { return fd<<1 | int(filter&1) }

func (b *kqueueBackend) poll(budgetNanos int64, out []*EventRecord, completions []Completion) (int, error) {
	events := make([]unix.Kevent_t, len(out))

	var ts *unix.Timespec

	if budgetNanos >= 0 {
		d := time.Duration(budgetNanos)
		spec := unix.NsecToTimespec(int64(d))
		ts = &spec
	}

	n, err := unix.Kevent(b.kq, nil, events, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}

		return 0, errkind.FromErrno("loop.kevent.wait", err.(unix.Errno))
	}

	filled := 0

	for i := 0; i < n && filled < len(out); i++ {
		ev := events[i]

		reg := b.regs[regKey(int(ev.Ident), ev.Filter)]
		if reg == nil {
			continue
		}

		if !reg.persist {
			b.deregisterFilter(reg.fd, reg.filter)
		}

		res, perr := reg.perform()

		var ek *errkind.Error
		if perr != nil {
			if e, ok := perr.(unix.Errno); ok {
				ek = errkind.FromErrno("loop.kqueue.perform", e)
			} else {
				ek = errkind.Wrap("loop.kqueue.perform", 0, perr)
			}
		}

		out[filled] = reg.rec
		completions[filled] = Completion{Res: res, Err: ek}
		filled++
	}

	return filled, nil
}

func (b *kqueueBackend) close() error {
	return unix.Close(b.kq)
}

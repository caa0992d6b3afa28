//go:build windows

package loop

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/arrowhead-io/aio/internal/errkind"
)

// Dynamically resolved since golang.org/x/sys/windows does not expose
// WSAPoll directly; grounded on the teacher's wsapoll_notifier_windows.go
// / iocp_poller_windows.go lazy-DLL pattern.
var (
	ws2_32      = windows.NewLazySystemDLL("ws2_32.dll")
	procWSAPoll = ws2_32.NewProc("WSAPoll")
)

const (
	pollRDNORM = int16(0x0100)
	pollWRNORM = int16(0x0010)
	pollERR    = int16(0x0001)
	pollHUP    = int16(0x0002)
)

type wsaPollFD struct {
	fd      uintptr
	events  int16
	revents int16
}

// wsapollBackend plays the same synthetic-completion role as the kqueue
// backend: WSAPoll reports readiness, and the registered perform closure
// issues the real nonblocking Winsock call on the loop thread.
type wsapollBackend struct {
	regs []*wsapollReg
}

type wsapollReg struct {
	sock    uintptr
	events  int16
	rec     *EventRecord
	persist bool
	perform func() (int32, error)
}

func newBackend() (backend, error) {
	return &wsapollBackend{}, nil
}

// RegisterRead implements loop.Registrar.
func (b *wsapollBackend) RegisterRead(sock uintptr, rec *EventRecord, persist bool, perform func() (int32, error)) error {
	b.regs = append(b.regs, &wsapollReg{sock: sock, events: pollRDNORM, rec: rec, persist: persist, perform: perform})

	return nil
}

// RegisterWrite implements loop.Registrar.
func (b *wsapollBackend) RegisterWrite(sock uintptr, rec *EventRecord, persist bool, perform func() (int32, error)) error {
	b.regs = append(b.regs, &wsapollReg{sock: sock, events: pollWRNORM, rec: rec, persist: persist, perform: perform})

	return nil
}

// Deregister implements loop.Registrar.
func (b *wsapollBackend) Deregister(sock uintptr) {
	kept := b.regs[:0]

	for _, r := range b.regs {
		if r.sock != sock {
			kept = append(kept, r)
		}
	}

	b.regs = kept
}

func (b *wsapollBackend) poll(budgetNanos int64, out []*EventRecord, completions []Completion) (int, error) {
	if len(b.regs) == 0 {
		if budgetNanos > 0 {
			time.Sleep(time.Duration(budgetNanos))
		}

		return 0, nil
	}

	fds := make([]wsaPollFD, len(b.regs))
	for i, r := range b.regs {
		fds[i] = wsaPollFD{fd: r.sock, events: r.events}
	}

	timeoutMs := int32(-1)
	if budgetNanos >= 0 {
		timeoutMs = int32(time.Duration(budgetNanos) / time.Millisecond)
	}

	ret, _, callErr := procWSAPoll.Call(
		uintptr(unsafe.Pointer(&fds[0])),
		uintptr(len(fds)),
		uintptr(timeoutMs),
	)
	if int32(ret) < 0 {
		return 0, errkind.Wrap("loop.wsapoll", int(ret), callErr)
	}

	filled := 0
	remaining := b.regs[:0]

	for i, r := range b.regs {
		fired := fds[i].revents&(r.events|pollERR|pollHUP) != 0
		if !fired || filled >= len(out) {
			remaining = append(remaining, r)

			continue
		}

		res, perr := r.perform()

		var ek *errkind.Error
		if perr != nil {
			if errno, ok := perr.(windows.Errno); ok {
				ek = errkind.FromWinsockErrno("loop.wsapoll.perform", errno)
			} else {
				ek = errkind.Wrap("loop.wsapoll.perform", 0, perr)
			}
		}

		out[filled] = r.rec
		completions[filled] = Completion{Res: res, Err: ek}
		filled++

		if r.persist {
			remaining = append(remaining, r)
		}
	}

	b.regs = remaining

	return filled, nil
}

func (b *wsapollBackend) close() error {
	b.regs = nil

	return nil
}

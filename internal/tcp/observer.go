package tcp

import "github.com/arrowhead-io/aio/internal/errkind"

// ConnObserver is the callback set plus opaque context attached to a
// connection. Ctx is passed to every callback invocation; callers needing
// per-connection state store it there instead of relying on closures,
// mirroring the vtable's context-first calling convention.
type ConnObserver struct {
	Ctx any

	OnOpen    func(ctx any, err *errkind.Error)
	OnConnect func(ctx any, err *errkind.Error)
	OnRead    func(ctx any, in *InputBuffer, err *errkind.Error)
	OnWrite   func(ctx any, out *OutputBuffer, err *errkind.Error)
	OnClose   func(ctx any, err *errkind.Error)
}

// ListenerObserver mirrors ConnObserver for the listener's lifecycle and
// accept events.
type ListenerObserver struct {
	Ctx any

	OnOpen   func(ctx any, err *errkind.Error)
	OnListen func(ctx any, err *errkind.Error)
	OnAccept func(ctx any, acc *Acceptance, err *errkind.Error)
	OnClose  func(ctx any, err *errkind.Error)
}

// Acceptance is delivered to OnAccept. The callback must either populate
// Observer on Conn or close Conn before returning; if it does neither,
// the listener redelivers the same acceptance with a bad-state error.
type Acceptance struct {
	Conn      *Conn
	Remote    Addr
	populated bool
}

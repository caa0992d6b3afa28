package tcp

import (
	"github.com/arrowhead-io/aio/internal/allocator"
	"github.com/arrowhead-io/aio/internal/errkind"
	"github.com/arrowhead-io/aio/internal/loop"
)

// defaultBacklog is used when Listen is called with backlog 0.
const defaultBacklog = 16

// platformMaxBacklog bounds the clamp applied to a caller-supplied
// backlog; most platforms silently clamp further internally, but a
// portable library still bounds what it hands the kernel.
const platformMaxBacklog = 4096

// Listener accepts connections, reserving a slot in its own connection
// slab for each acceptance. Closing frees all pending accept submissions but
// never closes already-accepted connections.
type Listener struct {
	lp        *loop.Loop
	transport ListenerTransport
	Observer  ListenerObserver

	state  ListenerState
	family Family

	pages *allocator.PageAllocator
	slab  *allocator.Slab

	// Fd is the OS listening socket handle, populated by the transport's
	// Open.
	Fd Handle
}

// NewListener allocates a listener against transport and observer,
// already in the initialised state.
func NewListener(transport *Transport, observer ListenerObserver, pages *allocator.PageAllocator, connSlotSize int) (*Listener, *errkind.Error) {
	if transport == nil || transport.Listener == nil {
		return nil, errkind.New("listener.init", errkind.InvalidArg)
	}

	l := &Listener{
		lp:        transport.Loop,
		transport: transport.Listener,
		Observer:  observer,
		pages:     pages,
		slab:      allocator.NewSlab(pages, connSlotSize),
	}

	if err := l.transport.Init(l); err != nil {
		return nil, errkind.Wrap("listener.init", 0, err)
	}

	l.state = ListenerInitialised

	return l, nil
}

// State returns the listener's current state.
func (l *Listener) State() ListenerState { return l.state }

// Open transitions initialised → open.
func (l *Listener) Open(local Addr) *errkind.Error {
	if l.state != ListenerInitialised {
		return errkind.New("listener.open", errkind.BadState)
	}

	err := l.transport.Open(l, local)

	if l.Observer.OnOpen != nil {
		l.Observer.OnOpen(l.Observer.Ctx, err)
	}

	if err != nil {
		return err
	}

	l.family = familyOf(local)
	l.state = ListenerOpen

	return nil
}

// Listen transitions open → listening, clamping backlog to
// [1, platformMaxBacklog] or defaultBacklog if zero.
func (l *Listener) Listen(backlog int) *errkind.Error {
	if l.state != ListenerOpen {
		return errkind.New("listener.listen", errkind.BadState)
	}

	if backlog == 0 {
		backlog = defaultBacklog
	}

	if backlog < 1 {
		backlog = 1
	}

	if backlog > platformMaxBacklog {
		backlog = platformMaxBacklog
	}

	if err := l.transport.Listen(l, backlog); err != nil {
		return err
	}

	l.state = ListenerListening

	if l.Observer.OnListen != nil {
		l.Observer.OnListen(l.Observer.Ctx, nil)
	}

	return nil
}

// deliverAccept is called by the platform accept backend with a raw
// connection fd and its remote address. It reserves a slab slot for the
// new Conn (released by Conn.Term; the Conn value itself is an ordinary
// Go allocation), prepares its transport via the listener_prepare hook,
// and invokes
// on_accept. If the callback neither populates an observer nor closes
// the connection, the acceptance is redelivered with bad-state.
func (l *Listener) deliverAccept(fd Handle, remote Addr, connLoop *loop.Loop) {
	slot := l.slab.Alloc()

	connTransport := l.transport.PrepareConnTransport(l)

	c := &Conn{
		lp:        connLoop,
		transport: connTransport,
		pages:     l.pages,
		slab:      l.slab,
		slabSlot:  slot,
		Fd:        fd,
		state:     ConnConnected,
	}

	acc := &Acceptance{Conn: c, Remote: remote}

	if l.Observer.OnAccept == nil {
		c.Close()

		return
	}

	l.Observer.OnAccept(l.Observer.Ctx, acc, nil)

	if acc.populated || c.state == ConnClosing || c.state == ConnClosed {
		return
	}

	// Caller did neither; redeliver with bad-state per spec.
	l.Observer.OnAccept(l.Observer.Ctx, acc, errkind.New("listener.accept", errkind.BadState))
}

// SetObserver is called by on_accept to populate the acceptance's
// connection observer, marking the acceptance satisfied.
func (a *Acceptance) SetObserver(o ConnObserver) {
	a.Conn.Observer = o
	a.populated = true
}

// Close transitions the listener into closing, cancelling all pending
// accept submissions without touching already-accepted connections.
func (l *Listener) Close() {
	if l.state == ListenerClosing || l.state == ListenerClosed || l.state == ListenerTerminated {
		return
	}

	l.state = ListenerClosing

	l.transport.Close(l, func(err *errkind.Error) {
		l.state = ListenerClosed

		if l.Observer.OnClose != nil {
			l.Observer.OnClose(l.Observer.Ctx, err)
		}
	})
}

// Term releases the listener's connection slab.
func (l *Listener) Term() {
	if l.state != ListenerClosed {
		return
	}

	l.transport.Term(l)
	l.slab.Term(nil)
	l.state = ListenerTerminated
}

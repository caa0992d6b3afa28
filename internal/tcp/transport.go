package tcp

import (
	"github.com/arrowhead-io/aio/internal/errkind"
	"github.com/arrowhead-io/aio/internal/loop"
)

// ConnTransport is the connection half of the transport vtable. Every
// connection carries exactly one for its entire lifetime. Default
// implementations delegate straight to OS syscalls; stacked transports
// hold an inner ConnTransport and forward operations they don't
// intercept.
type ConnTransport interface {
	Init(c *Conn) error
	Open(c *Conn, local Addr) *errkind.Error
	Connect(c *Conn, remote Addr, done func(*errkind.Error)) *errkind.Error
	ReadStart(c *Conn) *errkind.Error
	ReadStop(c *Conn) *errkind.Error
	Write(c *Conn, out *OutputBuffer, done func(*errkind.Error)) *errkind.Error
	Shutdown(c *Conn, flags ShutFlags) *errkind.Error
	Close(c *Conn, done func(*errkind.Error))
	Term(c *Conn)

	LocalAddr(c *Conn) Addr
	RemoteAddr(c *Conn) Addr
	SetKeepAlive(c *Conn, enable bool) *errkind.Error
	SetNoDelay(c *Conn, enable bool) *errkind.Error
}

// ListenerTransport is the listener half of the vtable.
type ListenerTransport interface {
	Init(l *Listener) error
	Open(l *Listener, local Addr) *errkind.Error
	Listen(l *Listener, backlog int) *errkind.Error
	Close(l *Listener, done func(*errkind.Error))
	Term(l *Listener)

	SetReuseAddr(l *Listener, enable bool) *errkind.Error

	// PrepareConnTransport returns a fresh ConnTransport instance for an
	// accepted connection, letting stacked transports (e.g. TLS) attach
	// per-connection context at accept time.
	PrepareConnTransport(l *Listener) ConnTransport
}

// Transport bundles the two vtables with the loop they're bound to.
// Every connection or listener is created against exactly one Transport.
type Transport struct {
	Loop     *loop.Loop
	Conn     ConnTransport
	Listener ListenerTransport
}

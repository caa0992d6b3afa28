package tcp

import (
	"unsafe"

	"github.com/arrowhead-io/aio/internal/addr"
	"github.com/arrowhead-io/aio/internal/allocator"
	"github.com/arrowhead-io/aio/internal/errkind"
	"github.com/arrowhead-io/aio/internal/loop"
)

// Conn is a single TCP connection's state machine, buffer ownership, and
// OS handle. Writes are valid only in {ConnConnected, ConnReading} with
// the write direction not shut; read_start is valid only from
// ConnConnected with the read direction not shut.
type Conn struct {
	lp        *loop.Loop
	transport ConnTransport
	Observer  ConnObserver

	state  ConnState
	shut   ShutFlags
	family Family

	in *InputBuffer

	pages    *allocator.PageAllocator
	slab     *allocator.Slab // non-nil only for connections drawn from a listener's slab
	slabSlot unsafe.Pointer

	// Fd is the OS socket handle. Populated by the transport's Open;
	// read directly by default transports instead of routed through a
	// side-table, since every connection owns exactly one transport for
	// its lifetime.
	Fd Handle

	readRec  *loop.EventRecord
	writeRec *loop.EventRecord
}

// NewConn allocates a connection against transport and observer, already
// in the initialised state. Accepted connections are constructed by the
// listener instead, with slab set.
func NewConn(transport *Transport, observer ConnObserver, pages *allocator.PageAllocator) (*Conn, *errkind.Error) {
	if transport == nil || transport.Conn == nil {
		return nil, errkind.New("conn.init", errkind.InvalidArg)
	}

	c := &Conn{lp: transport.Loop, transport: transport.Conn, Observer: observer, pages: pages}

	if err := c.transport.Init(c); err != nil {
		return nil, errkind.Wrap("conn.init", 0, err)
	}

	c.state = ConnInitialised

	return c, nil
}

// State returns the connection's current state.
func (c *Conn) State() ConnState { return c.state }

// Loop returns the loop this connection is bound to.
func (c *Conn) Loop() *loop.Loop { return c.lp }

// InBuffer returns the connection's currently attached input buffer, or
// nil before read_start has allocated one.
func (c *Conn) InBuffer() *InputBuffer { return c.in }

// DetachInBuffer transfers ownership of the connection's current input
// buffer to the caller and attaches a freshly page-allocated one in its
// place. Typically called from on_read; the caller becomes responsible
// for eventually calling Release on the detached buffer. Returns nil if
// read_start has not yet allocated a buffer.
func (c *Conn) DetachInBuffer() *InputBuffer {
	if c.in == nil {
		return nil
	}

	old := c.in
	c.in = newInputBuffer(c.pages)

	return old
}

// Open transitions initialised → open. local may be the wildcard address
// with port zero to let the OS choose.
func (c *Conn) Open(local Addr) *errkind.Error {
	if c.state != ConnInitialised {
		return errkind.New("conn.open", errkind.BadState)
	}

	err := c.transport.Open(c, local)

	if c.Observer.OnOpen != nil {
		c.Observer.OnOpen(c.Observer.Ctx, err)
	}

	if err != nil {
		return err
	}

	c.family = familyOf(local)
	c.state = ConnOpen

	return nil
}

// Connect transitions open → connecting, then connecting → connected (or
// back to open) when the transport reports completion. Shutdown
// directions are inferred from which observer callbacks are non-nil: a
// nil OnRead implies read-shutdown, a nil OnWrite implies write-shutdown;
// if both are implied, shutdown is issued immediately after connect
// succeeds.
func (c *Conn) Connect(remote Addr) *errkind.Error {
	if c.state != ConnOpen {
		return errkind.New("conn.connect", errkind.BadState)
	}

	c.state = ConnConnecting

	err := c.transport.Connect(c, remote, func(connErr *errkind.Error) {
		if connErr != nil {
			c.state = ConnOpen
		} else {
			c.state = ConnConnected

			var implied ShutFlags
			if c.Observer.OnRead == nil {
				implied |= ShutRead
			}

			if c.Observer.OnWrite == nil {
				implied |= ShutWrite
			}

			if implied == ShutRead|ShutWrite {
				_ = c.Shutdown(implied)
			}
		}

		if c.Observer.OnConnect != nil {
			c.Observer.OnConnect(c.Observer.Ctx, connErr)
		}
	})
	if err != nil {
		c.state = ConnOpen

		return err
	}

	return nil
}

// ReadStart transitions connected → reading and allocates the
// connection's first input buffer.
func (c *Conn) ReadStart() *errkind.Error {
	if c.state != ConnConnected {
		return errkind.New("conn.read_start", errkind.BadState)
	}

	if c.shut.Read() {
		return errkind.New("conn.read_start", errkind.BadState)
	}

	if c.in == nil {
		c.in = newInputBuffer(c.pages)
	}

	if err := c.transport.ReadStart(c); err != nil {
		return err
	}

	c.state = ConnReading

	return nil
}

// ReadStop transitions reading → connected. Successful in-flight read
// completions are silently discarded by the transports' read callbacks,
// which check that the connection is still in the reading state.
func (c *Conn) ReadStop() *errkind.Error {
	if c.state != ConnReading {
		return errkind.New("conn.read_stop", errkind.BadState)
	}

	if err := c.transport.ReadStop(c); err != nil {
		return err
	}

	c.state = ConnConnected

	return nil
}

// Write enqueues out for transmission. Valid only in {connected,
// reading} with the write direction not shut.
func (c *Conn) Write(out *OutputBuffer) *errkind.Error {
	if c.state != ConnConnected && c.state != ConnReading {
		return errkind.New("conn.write", errkind.BadState)
	}

	if c.shut.Write() {
		return errkind.New("conn.write", errkind.BadState)
	}

	out.conn = c

	return c.transport.Write(c, out, func(err *errkind.Error) {
		if c.Observer.OnWrite != nil {
			c.Observer.OnWrite(c.Observer.Ctx, out, err)
		}
	})
}

// Shutdown requests read-shutdown, write-shutdown, or both. Further
// locally issued reads/writes in the shut direction are rejected with
// bad-state; in-flight outcomes in that direction are silently dropped.
func (c *Conn) Shutdown(flags ShutFlags) *errkind.Error {
	if c.state == ConnTerminated || c.state == ConnClosed || c.state == ConnClosing {
		return errkind.New("conn.shutdown", errkind.BadState)
	}

	if err := c.transport.Shutdown(c, flags); err != nil {
		return err
	}

	c.shut |= flags

	return nil
}

// Close schedules socket closure from any live state. OnClose is always
// invoked exactly once, even if Close is called more than once.
func (c *Conn) Close() {
	if c.state == ConnClosing || c.state == ConnClosed || c.state == ConnTerminated {
		return
	}

	c.state = ConnClosing

	cancelled := errkind.New("conn.close", errkind.Cancelled)

	if c.readRec != nil && c.Observer.OnRead != nil {
		c.Observer.OnRead(c.Observer.Ctx, c.in, cancelled)
	}

	if c.writeRec != nil && c.Observer.OnWrite != nil {
		c.Observer.OnWrite(c.Observer.Ctx, nil, cancelled)
	}

	c.transport.Close(c, func(err *errkind.Error) {
		c.state = ConnClosed

		if c.Observer.OnClose != nil {
			c.Observer.OnClose(c.Observer.Ctx, err)
		}
	})
}

// Term releases resources associated with a fully-closed connection,
// including its input buffer's page and, if this connection was drawn
// from a listener's slab, its slot.
func (c *Conn) Term() {
	if c.state != ConnClosed {
		return
	}

	c.transport.Term(c)

	if c.in != nil {
		c.in.Release()
		c.in = nil
	}

	if c.slab != nil {
		c.slab.Free(c.slabSlot)
	}

	c.state = ConnTerminated
}

func familyOf(a Addr) Family {
	if a.Family == addr.IPv6 {
		return FamilyIPv6
	}

	return FamilyIPv4
}

//go:build linux

package tcp

import (
	"encoding/binary"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/arrowhead-io/aio/internal/addr"
	"github.com/arrowhead-io/aio/internal/errkind"
	"github.com/arrowhead-io/aio/internal/loop"
)

// DefaultOSTransport is the io_uring-backed transport: accept, connect,
// recv, and send are true completion-based submissions rather than
// readiness notifications run synchronously on the loop thread. Grounded
// on the teacher pack's ianic/xnet aio loop (Loop.Dial/Loop.Listen),
// including its use of runtime.Pinner to keep a raw sockaddr reachable
// across the submit/complete boundary.
type DefaultOSTransport struct{}

// NewDefaultTransport builds a Transport bound to lp using the platform
// default OS transport.
func NewDefaultTransport(lp *loop.Loop) *Transport {
	return &Transport{Loop: lp, Conn: defaultConnTransport{}, Listener: defaultListenerTransport{}}
}

// rawSockaddr marshals a into the raw bytes io_uring's connect opcode
// expects, mirroring struct sockaddr_in / sockaddr_in6 layout.
func rawSockaddr(a Addr) []byte {
	if a.Family == addr.IPv6 {
		buf := make([]byte, 28)
		binary.LittleEndian.PutUint16(buf[0:2], unix.AF_INET6)
		binary.BigEndian.PutUint16(buf[2:4], a.Port)
		binary.BigEndian.PutUint32(buf[4:8], a.Flow)
		copy(buf[8:24], a.IPv6[:])

		return buf
	}

	buf := make([]byte, 16)
	binary.LittleEndian.PutUint16(buf[0:2], unix.AF_INET)
	binary.BigEndian.PutUint16(buf[2:4], a.Port)
	copy(buf[4:8], a.IPv4[:])

	return buf
}

func addrOfBytes(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}

	return uintptr(unsafe.Pointer(&b[0]))
}

type defaultConnTransport struct{}

func (defaultConnTransport) Init(c *Conn) error { return nil }

func (defaultConnTransport) Open(c *Conn, local Addr) *errkind.Error {
	fam := familyOf(local)

	fd, err := newStreamSocket(fam)
	if err != nil {
		return err
	}

	if err := bindSocket(fd, local); err != nil {
		_ = unix.Close(fd)

		return err
	}

	c.Fd = fd

	return nil
}

func (defaultConnTransport) Connect(c *Conn, remote Addr, done func(*errkind.Error)) *errkind.Error {
	sub := c.Loop().Backend().(loop.Submitter)

	raw := rawSockaddr(remote)

	var pinner runtime.Pinner
	pinner.Pin(&raw[0])

	rec, _ := c.Loop().Submit(c, func(_ *loop.EventRecord, comp loop.Completion) {
		pinner.Unpin()
		done(comp.Err)
	})

	sub.SubmitConnect(c.Fd, addrOfBytes(raw), uint64(len(raw)), rec)

	return nil
}

func (defaultConnTransport) ReadStart(c *Conn) *errkind.Error {
	sub := c.Loop().Backend().(loop.Submitter)

	var submitRecv func()

	submitRecv = func() {
		rec, _ := c.Loop().Submit(c, func(_ *loop.EventRecord, comp loop.Completion) {
			if comp.Err != nil {
				if c.Observer.OnRead != nil {
					c.Observer.OnRead(c.Observer.Ctx, c.in, comp.Err)
				}

				return
			}

			if c.state != ConnReading {
				return // read_stop discards in-flight completions
			}

			if !c.in.cursor.WriteV(int(comp.Res)) {
				if c.Observer.OnRead != nil {
					c.Observer.OnRead(c.Observer.Ctx, c.in, errkind.New("conn.read", errkind.Overflow))
				}

				return
			}

			if comp.Res == 0 {
				if c.Observer.OnRead != nil {
					c.Observer.OnRead(c.Observer.Ctx, c.in, errkind.New("conn.read", errkind.EOF))
				}

				return
			}

			if c.Observer.OnRead != nil {
				c.Observer.OnRead(c.Observer.Ctx, c.in, nil)
			}

			submitRecv()
		})

		c.readRec = rec
		sub.SubmitRecv(c.Fd, c.in.cursor.WriteSlice(), rec)
	}

	submitRecv()

	return nil
}

func (defaultConnTransport) ReadStop(c *Conn) *errkind.Error {
	c.readRec = nil

	return nil
}

func (defaultConnTransport) Write(c *Conn, out *OutputBuffer, done func(*errkind.Error)) *errkind.Error {
	sub := c.Loop().Backend().(loop.Submitter)

	slice := out.cursor.ReadSlice()

	rec, _ := c.Loop().Submit(c, func(_ *loop.EventRecord, comp loop.Completion) {
		c.writeRec = nil

		if comp.Err == nil {
			out.cursor.Skip(int(comp.Res))
		}

		done(comp.Err)
	})

	c.writeRec = rec
	sub.SubmitSend(c.Fd, slice, rec)

	return nil
}

func (defaultConnTransport) Shutdown(c *Conn, flags ShutFlags) *errkind.Error {
	return shutdownSocket(c.Fd, flags)
}

func (defaultConnTransport) Close(c *Conn, done func(*errkind.Error)) {
	sub := c.Loop().Backend().(loop.Submitter)

	rec, _ := c.Loop().Submit(c, func(_ *loop.EventRecord, comp loop.Completion) {
		done(comp.Err)
	})

	sub.SubmitClose(c.Fd, rec)
}

func (defaultConnTransport) Term(c *Conn) {}

func (defaultConnTransport) LocalAddr(c *Conn) Addr  { return localAddrOf(c.Fd) }
func (defaultConnTransport) RemoteAddr(c *Conn) Addr { return remoteAddrOf(c.Fd) }

func (defaultConnTransport) SetKeepAlive(c *Conn, enable bool) *errkind.Error {
	return setKeepAlive(c.Fd, enable)
}

func (defaultConnTransport) SetNoDelay(c *Conn, enable bool) *errkind.Error {
	return setNoDelay(c.Fd, enable)
}

type defaultListenerTransport struct{}

func (defaultListenerTransport) Init(l *Listener) error { return nil }

func (defaultListenerTransport) Open(l *Listener, local Addr) *errkind.Error {
	fam := familyOf(local)

	fd, err := newStreamSocket(fam)
	if err != nil {
		return err
	}

	if err := bindSocket(fd, local); err != nil {
		_ = unix.Close(fd)

		return err
	}

	l.Fd = fd

	return nil
}

// Listen submits a multishot accept: the kernel keeps producing one
// completion per incoming connection until the listener fd is closed.
func (defaultListenerTransport) Listen(l *Listener, backlog int) *errkind.Error {
	if err := listenSocket(l.Fd, backlog); err != nil {
		return err
	}

	sub := l.lp.Backend().(loop.Submitter)

	rec, _ := l.lp.Submit(l, func(_ *loop.EventRecord, comp loop.Completion) {
		if comp.Err != nil {
			return
		}

		connFd := int(comp.Res)

		l.deliverAccept(connFd, remoteAddrOf(connFd), l.lp)
	})

	sub.SubmitAccept(l.Fd, rec)

	return nil
}

func (defaultListenerTransport) Close(l *Listener, done func(*errkind.Error)) {
	sub := l.lp.Backend().(loop.Submitter)

	rec, _ := l.lp.Submit(l, func(_ *loop.EventRecord, comp loop.Completion) {
		done(comp.Err)
	})

	sub.SubmitClose(l.Fd, rec)
}

func (defaultListenerTransport) Term(l *Listener) {}

func (defaultListenerTransport) SetReuseAddr(l *Listener, enable bool) *errkind.Error {
	v := 0
	if enable {
		v = 1
	}

	if err := unix.SetsockoptInt(l.Fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, v); err != nil {
		return errkind.FromErrno("setsockopt.reuseaddr", err.(unix.Errno))
	}

	return nil
}

func (defaultListenerTransport) PrepareConnTransport(l *Listener) ConnTransport {
	return defaultConnTransport{}
}

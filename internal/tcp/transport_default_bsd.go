//go:build darwin || freebsd || netbsd || openbsd

package tcp

import (
	"golang.org/x/sys/unix"

	"github.com/arrowhead-io/aio/internal/errkind"
	"github.com/arrowhead-io/aio/internal/loop"
)

// DefaultOSTransport is the kqueue-backed transport: readiness fires on
// the loop's backend, and the actual nonblocking read/write/accept/
// connect syscall runs synchronously on the loop thread, translated into
// a Completion. Grounded on the teacher's kqueuePoller design.
type DefaultOSTransport struct{}

// NewDefaultTransport builds a Transport bound to lp using the platform
// default OS transport.
func NewDefaultTransport(lp *loop.Loop) *Transport {
	return &Transport{Loop: lp, Conn: defaultConnTransport{}, Listener: defaultListenerTransport{}}
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
	sa := toSockaddr(remote)

	err := unix.Connect(c.Fd, sa)
	if err == nil {
		done(nil)

		return nil
	}

	if err != unix.EINPROGRESS {
		return errkind.FromErrno("connect", err.(unix.Errno))
	}

	reg := c.Loop().Backend().(loop.Registrar)

	rec, _ := c.Loop().Submit(c, func(_ *loop.EventRecord, comp loop.Completion) {
		done(comp.Err)
	})

	if regErr := reg.RegisterWrite(uintptr(c.Fd), rec, false, func() (int32, error) {
		errno, sockErr := unix.GetsockoptInt(c.Fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if sockErr != nil {
			return 0, sockErr
		}

		if errno != 0 {
			return 0, unix.Errno(errno)
		}

		return 0, nil
	}); regErr != nil {
		return errkind.Wrap("connect.register", 0, regErr)
	}

	return nil
}

func (defaultConnTransport) ReadStart(c *Conn) *errkind.Error {
	reg := c.Loop().Backend().(loop.Registrar)

	rec, _ := c.Loop().Submit(c, func(rec *loop.EventRecord, comp loop.Completion) {
		rec.Rearm()

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
	})

	c.readRec = rec

	return errWrap(reg.RegisterRead(uintptr(c.Fd), rec, true, func() (int32, error) {
		n, err := unix.Read(c.Fd, c.in.cursor.WriteSlice())

		return int32(n), err
	}))
}

func (defaultConnTransport) ReadStop(c *Conn) *errkind.Error {
	reg := c.Loop().Backend().(loop.Registrar)
	reg.Deregister(uintptr(c.Fd))
	c.readRec = nil

	return nil
}

func (defaultConnTransport) Write(c *Conn, out *OutputBuffer, done func(*errkind.Error)) *errkind.Error {
	reg := c.Loop().Backend().(loop.Registrar)

	rec, _ := c.Loop().Submit(c, func(_ *loop.EventRecord, comp loop.Completion) {
		c.writeRec = nil
		done(comp.Err)
	})

	c.writeRec = rec

	return errWrap(reg.RegisterWrite(uintptr(c.Fd), rec, false, func() (int32, error) {
		n, err := unix.Write(c.Fd, out.cursor.ReadSlice())
		if err == nil {
			out.cursor.Skip(n)
		}

		return int32(n), err
	}))
}

func (defaultConnTransport) Shutdown(c *Conn, flags ShutFlags) *errkind.Error {
	return shutdownSocket(c.Fd, flags)
}

func (defaultConnTransport) Close(c *Conn, done func(*errkind.Error)) {
	if reg, ok := c.Loop().Backend().(loop.Registrar); ok {
		reg.Deregister(uintptr(c.Fd))
	}

	_ = unix.Close(c.Fd)
	done(nil)
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

func (defaultListenerTransport) Listen(l *Listener, backlog int) *errkind.Error {
	if err := listenSocket(l.Fd, backlog); err != nil {
		return err
	}

	reg := l.lp.Backend().(loop.Registrar)

	rec, _ := l.lp.Submit(l, func(rec *loop.EventRecord, comp loop.Completion) {
		rec.Rearm()

		if comp.Err != nil {
			return
		}

		connFd, sa, err := unix.Accept(l.Fd)
		if err != nil {
			return
		}

		_ = unix.SetNonblock(connFd, true)

		l.deliverAccept(connFd, fromSockaddr(sa), l.lp)
	})

	return errWrap(reg.RegisterRead(uintptr(l.Fd), rec, true, func() (int32, error) {
		return 0, nil
	}))
}

func (defaultListenerTransport) Close(l *Listener, done func(*errkind.Error)) {
	if reg, ok := l.lp.Backend().(loop.Registrar); ok {
		reg.Deregister(uintptr(l.Fd))
	}

	_ = unix.Close(l.Fd)
	done(nil)
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

func errWrap(err error) *errkind.Error {
	if err == nil {
		return nil
	}

	if e, ok := err.(*errkind.Error); ok {
		return e
	}

	return errkind.Wrap("loop.register", 0, err)
}

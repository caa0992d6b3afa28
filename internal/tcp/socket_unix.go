//go:build linux || darwin || freebsd || netbsd || openbsd

package tcp

import (
	"golang.org/x/sys/unix"

	"github.com/arrowhead-io/aio/internal/addr"
	"github.com/arrowhead-io/aio/internal/errkind"
)

func domainOf(f Family) int {
	if f == FamilyIPv6 {
		return unix.AF_INET6
	}

	return unix.AF_INET
}

func toSockaddr(a Addr) unix.Sockaddr {
	if a.Family == addr.IPv6 {
		sa := &unix.SockaddrInet6{Port: int(a.Port)}
		copy(sa.Addr[:], a.IPv6[:])

		return sa
	}

	sa := &unix.SockaddrInet4{Port: int(a.Port)}
	copy(sa.Addr[:], a.IPv4[:])

	return sa
}

func fromSockaddr(sa unix.Sockaddr) Addr {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		var out Addr
		out.Family = addr.IPv4
		out.Port = uint16(v.Port)
		copy(out.IPv4[:], v.Addr[:])

		return out
	case *unix.SockaddrInet6:
		var out Addr
		out.Family = addr.IPv6
		out.Port = uint16(v.Port)
		copy(out.IPv6[:], v.Addr[:])

		return out
	default:
		return Addr{}
	}
}

// newStreamSocket creates a nonblocking TCP socket for family.
func newStreamSocket(family Family) (int, *errkind.Error) {
	fd, err := unix.Socket(domainOf(family), unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, errkind.FromErrno("socket", err.(unix.Errno))
	}

	return fd, nil
}

func bindSocket(fd int, local Addr) *errkind.Error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return errkind.FromErrno("setsockopt.reuseaddr", err.(unix.Errno))
	}

	if err := unix.Bind(fd, toSockaddr(local)); err != nil {
		return errkind.FromErrno("bind", err.(unix.Errno))
	}

	return nil
}

func listenSocket(fd int, backlog int) *errkind.Error {
	if err := unix.Listen(fd, backlog); err != nil {
		return errkind.FromErrno("listen", err.(unix.Errno))
	}

	return nil
}

func localAddrOf(fd int) Addr {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return Addr{}
	}

	return fromSockaddr(sa)
}

func remoteAddrOf(fd int) Addr {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return Addr{}
	}

	return fromSockaddr(sa)
}

func setKeepAlive(fd int, enable bool) *errkind.Error {
	v := 0
	if enable {
		v = 1
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, v); err != nil {
		return errkind.FromErrno("setsockopt.keepalive", err.(unix.Errno))
	}

	return nil
}

func setNoDelay(fd int, enable bool) *errkind.Error {
	v := 0
	if enable {
		v = 1
	}

	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v); err != nil {
		return errkind.FromErrno("setsockopt.nodelay", err.(unix.Errno))
	}

	return nil
}

func shutdownSocket(fd int, flags ShutFlags) *errkind.Error {
	how := -1

	switch {
	case flags.Read() && flags.Write():
		how = unix.SHUT_RDWR
	case flags.Read():
		how = unix.SHUT_RD
	case flags.Write():
		how = unix.SHUT_WR
	default:
		return nil
	}

	if err := unix.Shutdown(fd, how); err != nil {
		return errkind.FromErrno("shutdown", err.(unix.Errno))
	}

	return nil
}

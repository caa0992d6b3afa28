//go:build windows

package tcp

import (
	"golang.org/x/sys/windows"

	"github.com/arrowhead-io/aio/internal/addr"
	"github.com/arrowhead-io/aio/internal/errkind"
)

func domainOf(f Family) int {
	if f == FamilyIPv6 {
		return windows.AF_INET6
	}

	return windows.AF_INET
}

func toSockaddr(a Addr) windows.Sockaddr {
	if a.Family == addr.IPv6 {
		sa := &windows.SockaddrInet6{Port: int(a.Port)}
		copy(sa.Addr[:], a.IPv6[:])

		return sa
	}

	sa := &windows.SockaddrInet4{Port: int(a.Port)}
	copy(sa.Addr[:], a.IPv4[:])

	return sa
}

func fromSockaddr(sa windows.Sockaddr) Addr {
	switch v := sa.(type) {
	case *windows.SockaddrInet4:
		var out Addr
		out.Family = addr.IPv4
		out.Port = uint16(v.Port)
		copy(out.IPv4[:], v.Addr[:])

		return out
	case *windows.SockaddrInet6:
		var out Addr
		out.Family = addr.IPv6
		out.Port = uint16(v.Port)
		copy(out.IPv6[:], v.Addr[:])

		return out
	default:
		return Addr{}
	}
}

func newStreamSocket(family Family) (windows.Handle, *errkind.Error) {
	fd, err := windows.Socket(domainOf(family), windows.SOCK_STREAM, windows.IPPROTO_TCP)
	if err != nil {
		return windows.InvalidHandle, winErr("socket", err)
	}

	if err := windows.SetNonblock(fd, true); err != nil {
		return windows.InvalidHandle, winErr("ioctlsocket.nonblock", err)
	}

	return fd, nil
}

func bindSocket(fd windows.Handle, local Addr) *errkind.Error {
	if err := windows.Bind(fd, toSockaddr(local)); err != nil {
		return winErr("bind", err)
	}

	return nil
}

func listenSocket(fd windows.Handle, backlog int) *errkind.Error {
	if err := windows.Listen(fd, backlog); err != nil {
		return winErr("listen", err)
	}

	return nil
}

func localAddrOf(fd windows.Handle) Addr {
	sa, err := windows.Getsockname(fd)
	if err != nil {
		return Addr{}
	}

	return fromSockaddr(sa)
}

func remoteAddrOf(fd windows.Handle) Addr {
	sa, err := windows.Getpeername(fd)
	if err != nil {
		return Addr{}
	}

	return fromSockaddr(sa)
}

func setKeepAlive(fd windows.Handle, enable bool) *errkind.Error {
	v := uint32(0)
	if enable {
		v = 1
	}

	if err := windows.SetsockoptInt(fd, windows.SOL_SOCKET, windows.SO_KEEPALIVE, int(v)); err != nil {
		return winErr("setsockopt.keepalive", err)
	}

	return nil
}

func setNoDelay(fd windows.Handle, enable bool) *errkind.Error {
	v := 0
	if enable {
		v = 1
	}

	if err := windows.SetsockoptInt(fd, windows.IPPROTO_TCP, windows.TCP_NODELAY, v); err != nil {
		return winErr("setsockopt.nodelay", err)
	}

	return nil
}

func shutdownSocket(fd windows.Handle, flags ShutFlags) *errkind.Error {
	how := -1

	switch {
	case flags.Read() && flags.Write():
		how = windows.SD_BOTH
	case flags.Read():
		how = windows.SD_RECEIVE
	case flags.Write():
		how = windows.SD_SEND
	default:
		return nil
	}

	if err := windows.Shutdown(fd, how); err != nil {
		return winErr("shutdown", err)
	}

	return nil
}

func winErr(op string, err error) *errkind.Error {
	if errno, ok := err.(windows.Errno); ok {
		return errkind.FromWinsockErrno(op, errno)
	}

	return errkind.Wrap(op, 0, err)
}
